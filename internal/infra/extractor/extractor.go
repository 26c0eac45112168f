package extractor

import (
	"context"

	"github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/resume"
)

// Extractor turns uploaded PDF and DOCX resumes into plain text.
type Extractor struct {
	log *logrus.Entry
}

func New(log *logrus.Entry) *Extractor {
	return &Extractor{log: log}
}

// Extract dispatches on the filename extension. Unsupported files return an empty
// extraction together with domain.ErrUnsupportedFormat.
func (e *Extractor) Extract(ctx context.Context, doc domain.Document) (domain.Extraction, error) {
	out := domain.Extraction{Filename: doc.Filename}

	format, ok := doc.Format()
	if !ok {
		e.log.WithField("filename", doc.Filename).Warn("unsupported resume format")
		return out, domain.ErrUnsupportedFormat
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	out.Format = format

	var err error
	switch format {
	case domain.FormatPDF:
		out.Text, out.Units, err = extractPDF(doc.Data)
	case domain.FormatDOCX:
		out.Text, out.Units, err = extractDOCX(doc.Data)
	}
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"filename": doc.Filename,
			"format":   format,
			"error":    err,
		}).Warn("resume extraction failed")
		return domain.Extraction{Filename: doc.Filename, Format: format}, err
	}

	e.log.WithFields(logrus.Fields{
		"filename": doc.Filename,
		"format":   format,
		"units":    out.Units,
		"chars":    len(out.Text),
	}).Debug("resume extracted")
	return out, nil
}

var _ domain.Extractor = (*Extractor)(nil)
