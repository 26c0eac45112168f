package resumes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/linkedin-analyzer/internal/application"
	"github.com/bryanwahyu/linkedin-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/resume"
	"github.com/bryanwahyu/linkedin-analyzer/internal/infra/ai/prompt"
)

// ErrHistoryDisabled is returned by History and Get when no repository is wired.
var ErrHistoryDisabled = errors.New("analysis history is disabled")

// Analyzer is satisfied by the application ai.Service.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText string) (string, error)
	Model() string
}

// Service implements the resume use-cases. Archive, Repo and Publisher are optional.
// Service is safe for concurrent use as long as its collaborators are.
type Service struct {
	Extractor domain.Extractor
	Analyzer  Analyzer
	Archive   domain.Archive
	Repo      analyst.Repository
	Publisher analyst.Publisher
	Clock     application.Clock
	Log       *logrus.Entry
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) log() *logrus.Entry {
	if s.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return s.Log
}

//
// ==== USE CASES ====
//

// ExtractResult is an extraction plus the archive location of the upload, if any.
type ExtractResult struct {
	domain.Extraction
	ArchiveURL string `json:"archive_url,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

// Extract pulls the text out of an upload. An unsupported format is not an
// error here, even for an empty file: the result carries the warning and empty text.
func (s *Service) Extract(ctx context.Context, filename string, data []byte) (ExtractResult, error) {
	// format first: an empty file of an unsupported type is still just a warning
	if _, ok := domain.FormatFromFilename(filename); ok && len(data) == 0 {
		return ExtractResult{}, domain.ErrEmptyUpload
	}
	doc := domain.Document{Filename: filename, Data: data}

	ext, err := s.Extractor.Extract(ctx, doc)
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return ExtractResult{
			Extraction: domain.Extraction{Filename: filename},
			Warning:    domain.UnsupportedWarning,
		}, nil
	case err != nil:
		return ExtractResult{}, err
	}

	res := ExtractResult{Extraction: ext}
	if s.Archive != nil {
		res.ArchiveURL = s.archive(ctx, doc)
	}
	return res, nil
}

// archive stores the original upload. Failures are logged and swallowed.
func (s *Service) archive(ctx context.Context, doc domain.Document) string {
	now := s.clock().Now()
	key := fmt.Sprintf("resumes/%04d/%02d/%s-%s", now.Year(), int(now.Month()), uuid.NewString(), baseName(doc.Filename))
	contentType := mimetype.Detect(doc.Data).String()

	url, err := s.Archive.Put(ctx, key, doc.Data, contentType)
	if err != nil {
		s.log().WithError(err).WithField("key", key).Warn("archive upload failed")
		return ""
	}
	s.log().WithFields(logrus.Fields{"key": key, "content_type": contentType}).Debug("upload archived")
	return url
}

// Analyze runs the analysis and records it. The returned Analysis is never nil;
// on failure it carries the rendered error kind and err is the typed *ai.Error.
func (s *Service) Analyze(ctx context.Context, filename, text string) (*analyst.Analysis, error) {
	reply, err := s.Analyzer.Analyze(ctx, text)

	a := &analyst.Analysis{
		ID:         analyst.AnalysisID(uuid.NewString()),
		Filename:   filename,
		Model:      s.Analyzer.Model(),
		PromptHash: hashPrompt(text),
		Result:     reply,
		CreatedAt:  s.clock().Now(),
	}
	if err != nil {
		a.ErrorKind = ai.KindOf(err).String()
	}

	// history and notifications must not hide the analysis result
	if s.Repo != nil {
		if serr := s.Repo.Save(ctx, a); serr != nil {
			s.log().WithError(serr).WithField("id", a.ID).Error("saving analysis failed")
		}
	}
	if s.Publisher != nil {
		if perr := s.Publisher.PublishAnalysis(ctx, a); perr != nil {
			s.log().WithError(perr).WithField("id", a.ID).Warn("publishing analysis failed")
		}
	}
	return a, err
}

// History lists persisted analyses, newest first.
func (s *Service) History(ctx context.Context, page, pageSize int) (*analyst.PaginatedResult, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.Repo.Paginate(ctx, page, pageSize)
}

// Get returns one persisted analysis.
func (s *Service) Get(ctx context.Context, id analyst.AnalysisID) (*analyst.Analysis, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Repo.Get(ctx, id)
}

func hashPrompt(text string) string {
	sum := sha256.Sum256([]byte(prompt.GetUserPrompt(text)))
	return hex.EncodeToString(sum[:])
}

func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		return "upload"
	}
	return name
}
