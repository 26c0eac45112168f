package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	appai "github.com/bryanwahyu/linkedin-analyzer/internal/application/ai"
	appresumes "github.com/bryanwahyu/linkedin-analyzer/internal/application/resumes"
	domai "github.com/bryanwahyu/linkedin-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/resume"
	"github.com/bryanwahyu/linkedin-analyzer/internal/middleware"
)

const (
	formFile = "resume"
	formText = "resume_text"
	// memory part of a multipart upload; the rest spills to temp files
	multipartMemory = 32 << 20
)

type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
	// APIKeys enables auth on /v1 when non-empty (client name -> key).
	APIKeys     map[string]string
	RateLimiter *middleware.RateLimiter
	RefillRate  int
	Health      map[string]middleware.HealthChecker
	Log         *logrus.Entry
}

type Router struct {
	resumes   *appresumes.Service
	maxUpload int64
	log       *logrus.Entry
}

func NewRouter(resumes *appresumes.Service, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 200 << 20
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &Router{resumes: resumes, maxUpload: opts.MaxUploadBytes, log: opts.Log}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(opts.Log))
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Health, "database"))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	limit := func(h http.Handler) http.Handler { return h }
	if opts.RateLimiter != nil {
		limit = middleware.RateLimit(opts.RateLimiter, opts.RefillRate)
	}

	// page flow
	mux.Get("/", r.wrapPage(r.handleIndex))
	mux.With(limit).Post("/extract", r.wrapPage(r.handlePageExtract))
	mux.With(limit).Post("/analyze", r.wrapPage(r.handlePageAnalyze))

	mux.Route("/v1", func(rt chi.Router) {
		if len(opts.APIKeys) > 0 {
			rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		}
		rt.Use(limit)
		rt.Post("/resumes/extract", r.wrap(r.handleExtract))
		rt.Post("/resumes/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/resumes", r.wrap(r.handleExtractAndAnalyze))
		rt.Get("/analyses", r.wrap(r.handleHistory))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest is returned by handlers for client input errors.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// classify maps an error to status, message and kind for both surfaces.
func classify(err error) (int, string, string) {
	var br *badRequest
	var tooLarge *http.MaxBytesError
	var aerr *domai.Error
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg, "bad_request"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %dMB", tooLarge.Limit>>20), "too_large"
	case errors.Is(err, domain.ErrEmptyUpload):
		return http.StatusBadRequest, "uploaded file is empty", "empty_upload"
	case errors.Is(err, domain.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity, "could not read the document: " + err.Error(), "unreadable_document"
	case errors.Is(err, appresumes.ErrHistoryDisabled):
		return http.StatusNotFound, err.Error(), "history_disabled"
	case errors.Is(err, analyst.ErrNotFound):
		return http.StatusNotFound, "not found", "not_found"
	case errors.As(err, &aerr):
		return analysisStatus(aerr), appai.Describe(aerr), aerr.Kind.String()
	default:
		return http.StatusInternalServerError, err.Error(), "internal"
	}
}

func analysisStatus(e *domai.Error) int {
	switch e.Kind {
	case domai.KindConfigMissing:
		return http.StatusServiceUnavailable
	case domai.KindTransport:
		return http.StatusGatewayTimeout
	case domai.KindRemote:
		if e.Status == http.StatusTooManyRequests {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, msg, kind := classify(err)
			if status >= http.StatusInternalServerError && kind == "internal" {
				r.log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			}
			writeJSON(w, status, map[string]string{"error": msg, "kind": kind})
		}
	}
}

func (r *Router) wrapPage(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, msg, kind := classify(err)
			if kind == "internal" {
				r.log.WithError(err).WithField("path", req.URL.Path).Error("page failed")
			}
			if rerr := r.renderPage(w, status, pageData{Error: msg}); rerr != nil {
				http.Error(w, msg, status)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// readUpload pulls the "resume" file out of a multipart request, bounded by maxUpload.
func (r *Router) readUpload(w http.ResponseWriter, req *http.Request) (string, []byte, error) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, err
		}
		return "", nil, badRequestf("invalid multipart form: %v", err)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile(formFile)
	if err != nil {
		return "", nil, badRequestf("missing %q file field", formFile)
	}
	defer file.Close()

	name := middleware.SanitizeFilename(header.Filename)
	if err := middleware.ValidateFilename(name); err != nil {
		return "", nil, badRequestf("%v", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return name, data, nil
}

func (r *Router) extract(w http.ResponseWriter, req *http.Request) (appresumes.ExtractResult, error) {
	name, data, err := r.readUpload(w, req)
	if err != nil {
		return appresumes.ExtractResult{}, err
	}
	res, err := r.resumes.Extract(req.Context(), name, data)
	middleware.RecordExtraction(res.Warning != "", err)
	return res, err
}

func (r *Router) analyze(req *http.Request, filename, text string) (*analyst.Analysis, error) {
	done := middleware.StartAnalysis()
	a, err := r.resumes.Analyze(req.Context(), filename, text)
	done(err)
	return a, err
}

//
// ==== PAGE FLOW ====
//

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) error {
	return r.renderPage(w, http.StatusOK, pageData{})
}

// POST /extract (multipart, field "resume")
func (r *Router) handlePageExtract(w http.ResponseWriter, req *http.Request) error {
	res, err := r.extract(w, req)
	if err != nil {
		return err
	}
	return r.renderPage(w, http.StatusOK, pageData{
		Filename:  res.Filename,
		Text:      res.Text,
		Extracted: true,
		Warning:   res.Warning,
	})
}

// POST /analyze (form fields "resume_text", "filename")
func (r *Router) handlePageAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequestf("invalid form: %v", err)
	}
	text := req.PostForm.Get(formText)
	filename := middleware.SanitizeFilename(req.PostForm.Get("filename"))

	// failures are rendered in place of the result, like a normal reply
	var output string
	a, err := r.analyze(req, filename, text)
	if err != nil {
		output = appai.Describe(err)
	} else {
		output = a.Result
	}
	return r.renderPage(w, http.StatusOK, pageData{
		Filename:  filename,
		Text:      text,
		Extracted: true,
		Analysis:  output,
		Analyzed:  true,
	})
}

//
// ==== JSON API ====
//

type extractResponse struct {
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	Text       string `json:"text"`
	Units      int    `json:"units"`
	Warning    string `json:"warning,omitempty"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

func toExtractResponse(res appresumes.ExtractResult) extractResponse {
	return extractResponse{
		Filename:   res.Filename,
		Format:     string(res.Format),
		Text:       res.Text,
		Units:      res.Units,
		Warning:    res.Warning,
		ArchiveURL: res.ArchiveURL,
	}
}

type analysisResponse struct {
	ID        string `json:"id"`
	Result    string `json:"result"`
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
}

func toAnalysisResponse(a *analyst.Analysis) analysisResponse {
	return analysisResponse{
		ID:        string(a.ID),
		Result:    a.Result,
		Model:     a.Model,
		CreatedAt: a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// POST /v1/resumes/extract
func (r *Router) handleExtract(w http.ResponseWriter, req *http.Request) error {
	res, err := r.extract(w, req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toExtractResponse(res))
}

// POST /v1/resumes/analyze
// Body: {"filename": "...", "text": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	var body struct {
		Filename string  `json:"filename"`
		Text     *string `json:"text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequestf("invalid JSON body: %v", err)
	}
	if body.Text == nil {
		return badRequestf("text is required")
	}

	a, err := r.analyze(req, middleware.SanitizeFilename(body.Filename), *body.Text)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toAnalysisResponse(a))
}

// POST /v1/resumes (multipart): extraction followed by analysis
func (r *Router) handleExtractAndAnalyze(w http.ResponseWriter, req *http.Request) error {
	res, err := r.extract(w, req)
	if err != nil {
		return err
	}
	a, err := r.analyze(req, res.Filename, res.Text)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"extraction": toExtractResponse(res),
		"analysis":   toAnalysisResponse(a),
	})
}

// GET /v1/analyses?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.resumes.History(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := strings.TrimSpace(chi.URLParam(req, "id"))
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequestf("%v", err)
	}
	a, err := r.resumes.Get(req.Context(), analyst.AnalysisID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}
