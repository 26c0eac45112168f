package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	appai "github.com/bryanwahyu/linkedin-analyzer/internal/application/ai"
	appresumes "github.com/bryanwahyu/linkedin-analyzer/internal/application/resumes"
	domai "github.com/bryanwahyu/linkedin-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/resume"
	"github.com/bryanwahyu/linkedin-analyzer/internal/logger"
	"github.com/bryanwahyu/linkedin-analyzer/internal/middleware"
)

// stubExtractor behaves like the real one on format selection.
type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, doc domain.Document) (domain.Extraction, error) {
	f, ok := doc.Format()
	if !ok {
		return domain.Extraction{}, domain.ErrUnsupportedFormat
	}
	if strings.HasPrefix(doc.Filename, "corrupt") {
		return domain.Extraction{}, domain.ErrUnreadableDocument
	}
	return domain.Extraction{Filename: doc.Filename, Format: f, Text: "Python Developer with 5 years experience", Units: 1}, nil
}

type stubClient struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubClient) Analyze(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *stubClient) Model() string { return "llama-3.3-70b-versatile" }

type memRepo struct{ items []*analyst.Analysis }

func (m *memRepo) Save(_ context.Context, a *analyst.Analysis) error {
	m.items = append(m.items, a)
	return nil
}

func (m *memRepo) Get(_ context.Context, id analyst.AnalysisID) (*analyst.Analysis, error) {
	for _, a := range m.items {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, analyst.ErrNotFound
}

func (m *memRepo) Paginate(_ context.Context, page, pageSize int) (*analyst.PaginatedResult, error) {
	return analyst.NewPaginatedResult(m.items, page, pageSize, int64(len(m.items))), nil
}

type fixture struct {
	client  *stubClient
	repo    *memRepo
	handler http.Handler
}

func newFixture(t *testing.T, opts Options) *fixture {
	return newFixtureWithHistory(t, opts, true)
}

func newFixtureWithHistory(t *testing.T, opts Options, history bool) *fixture {
	t.Helper()
	f := &fixture{client: &stubClient{reply: "Great resume!"}}
	svc := &appresumes.Service{
		Extractor: stubExtractor{},
		Analyzer:  appai.NewService(f.client, logger.Discard()),
		Log:       logger.Discard(),
	}
	if history {
		f.repo = &memRepo{}
		svc.Repo = f.repo
	}
	opts.Log = logger.Discard()
	f.handler = NewRouter(svc, opts)
	return f
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("resume", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, path, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, filename, data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestPage_Index(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"LinkedIn Profile Analyzer",
		"Please upload a resume to get started.",
		`accept=".pdf,.docx"`,
		"Made with ❤ by <b>GuruBrahma</b> | Powered by Go",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Analyze Resume") {
		t.Error("analyze button shown before upload")
	}
}

func TestPage_Extract(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.upload(t, "/extract", "cv.pdf", []byte("%PDF-1.4"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Extracted Resume Text", "Python Developer with 5 years experience", "Analyze Resume"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Please upload a resume to get started.") {
		t.Error("info text shown after upload")
	}
}

func TestPage_ExtractUnsupported(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.upload(t, "/extract", "cv.txt", []byte("plain"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), domain.UnsupportedWarning) {
		t.Error("warning not shown")
	}
	if !strings.Contains(rec.Body.String(), "Analyze Resume") {
		t.Error("analysis should stay available on empty text")
	}
}

func TestPage_Analyze(t *testing.T) {
	f := newFixture(t, Options{})
	form := url.Values{"resume_text": {"Jane <Doe>"}, "filename": {"cv.pdf"}}
	rec := f.do(t, http.MethodPost, "/analyze", "application/x-www-form-urlencoded", form.Encode())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "AI Analysis & Suggestions") || !strings.Contains(body, "Great resume!") {
		t.Errorf("result missing: %s", body)
	}
	if !strings.Contains(body, "Jane &lt;Doe&gt;") {
		t.Error("resume text not escaped")
	}
	if len(f.client.prompts) != 1 || !strings.HasSuffix(f.client.prompts[0], "Resume:\nJane <Doe>") {
		t.Errorf("prompts = %q", f.client.prompts)
	}
}

func TestPage_AnalyzeRendersErrorString(t *testing.T) {
	f := newFixture(t, Options{})
	f.client.err = &domai.Error{Kind: domai.KindConfigMissing}

	rec := f.do(t, http.MethodPost, "/analyze", "application/x-www-form-urlencoded", "resume_text=x")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error: Missing GROQ API key.") {
		t.Errorf("error string missing: %s", rec.Body.String())
	}
}

func TestPage_ExtractUnreadable(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.upload(t, "/extract", "corrupt.pdf", []byte("junk"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "could not read the document") {
		t.Error("error not rendered")
	}
}

func TestAPI_Extract(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.upload(t, "/v1/resumes/extract", "cv.docx", []byte("PK"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	m := decode(t, rec)
	if m["format"] != "docx" || m["text"] != "Python Developer with 5 years experience" || m["units"] != float64(1) {
		t.Errorf("response = %v", m)
	}
	if _, ok := m["warning"]; ok {
		t.Error("unexpected warning")
	}

	rec = f.upload(t, "/v1/resumes/extract", "cv.png", []byte("x"))
	if rec.Code != http.StatusOK {
		t.Fatalf("unsupported status = %d", rec.Code)
	}
	if m := decode(t, rec); m["warning"] != domain.UnsupportedWarning || m["text"] != "" {
		t.Errorf("unsupported response = %v", m)
	}

	rec = f.upload(t, "/v1/resumes/extract", "notes.txt", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty unsupported status = %d: %s", rec.Code, rec.Body.String())
	}
	if m := decode(t, rec); m["warning"] != domain.UnsupportedWarning {
		t.Errorf("empty unsupported response = %v", m)
	}
}

func TestAPI_ExtractErrors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		data       []byte
		maxUpload  int64
		wantStatus int
		wantKind   string
	}{
		{"unreadable", "corrupt.pdf", []byte("junk"), 0, http.StatusUnprocessableEntity, "unreadable_document"},
		{"empty", "cv.pdf", nil, 0, http.StatusBadRequest, "empty_upload"},
		{"too large", "cv.pdf", bytes.Repeat([]byte("a"), 4096), 1024, http.StatusRequestEntityTooLarge, "too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{MaxUploadBytes: tt.maxUpload})
			rec := f.upload(t, "/v1/resumes/extract", tt.filename, tt.data)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if m := decode(t, rec); m["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %s", m["kind"], tt.wantKind)
			}
		})
	}

	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodPost, "/v1/resumes/extract", "application/json", "{}")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-multipart status = %d", rec.Code)
	}
}

func TestAPI_Analyze(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodPost, "/v1/resumes/analyze", "application/json", `{"filename":"cv.pdf","text":"Jane"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	m := decode(t, rec)
	if m["result"] != "Great resume!" || m["model"] != "llama-3.3-70b-versatile" || m["id"] == "" {
		t.Errorf("response = %v", m)
	}

	// recorded in history
	rec = f.do(t, http.MethodGet, "/v1/analyses/"+m["id"].(string), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/v1/analyses?page=1&page_size=5", "", "")
	if hist := decode(t, rec); hist["totalItems"] != float64(1) {
		t.Errorf("history = %v", hist)
	}
}

func TestAPI_AnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"missing key", &domai.Error{Kind: domai.KindConfigMissing}, http.StatusServiceUnavailable, "config_missing", "Error: Missing GROQ API key."},
		{"remote 404", &domai.Error{Kind: domai.KindRemote, Status: 404, Body: "not found"}, http.StatusBadGateway, "remote_error", "Error: 404 - not found"},
		{"remote 429", &domai.Error{Kind: domai.KindRemote, Status: 429, Body: "slow down"}, http.StatusTooManyRequests, "remote_error", "Error: 429 - slow down"},
		{"transport", &domai.Error{Kind: domai.KindTransport, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "transport_failure", "Error connecting to Groq API: context deadline exceeded"},
		{"malformed", &domai.Error{Kind: domai.KindMalformed}, http.StatusBadGateway, "malformed_response", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.client.err = tt.err
			rec := f.do(t, http.MethodPost, "/v1/resumes/analyze", "application/json", `{"text":"Jane"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			m := decode(t, rec)
			if m["kind"] != tt.wantKind {
				t.Errorf("kind = %v", m["kind"])
			}
			if tt.wantMsg != "" && m["error"] != tt.wantMsg {
				t.Errorf("error = %v, want %q", m["error"], tt.wantMsg)
			}
			if len(f.repo.items) != 1 || !f.repo.items[0].Failed() {
				t.Error("failed analysis not recorded")
			}
		})
	}
}

func TestAPI_AnalyzeBadRequest(t *testing.T) {
	f := newFixture(t, Options{})
	for _, body := range []string{`not json`, `{"filename":"cv.pdf"}`} {
		rec := f.do(t, http.MethodPost, "/v1/resumes/analyze", "application/json", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}
	if len(f.client.prompts) != 0 {
		t.Error("bad requests reached the analyzer")
	}
}

func TestAPI_ExtractAndAnalyze(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.upload(t, "/v1/resumes", "cv.pdf", []byte("%PDF"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	m := decode(t, rec)
	if m["analysis"].(map[string]any)["result"] != "Great resume!" {
		t.Errorf("response = %v", m)
	}
	if !strings.Contains(f.client.prompts[0], "Python Developer with 5 years experience") {
		t.Errorf("prompt = %q", f.client.prompts[0])
	}
}

func TestAPI_History(t *testing.T) {
	f := newFixture(t, Options{})
	if rec := f.do(t, http.MethodGet, "/v1/analyses/not-a-uuid", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/v1/analyses/0b7f6a3e-1c1d-4a53-9d0e-5a0f2c6a1e11", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d", rec.Code)
	}

	// no repository wired
	disabled := newFixtureWithHistory(t, Options{}, false)
	rec := disabled.do(t, http.MethodGet, "/v1/analyses", "", "")
	if rec.Code != http.StatusNotFound || decode(t, rec)["kind"] != "history_disabled" {
		t.Errorf("disabled history = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_Auth(t *testing.T) {
	f := newFixture(t, Options{APIKeys: map[string]string{"ci": "k1"}})

	rec := f.do(t, http.MethodGet, "/v1/analyses", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized status = %d", rec.Code)
	}

	// page flow stays open
	if rec := f.do(t, http.MethodGet, "/", "", ""); rec.Code != http.StatusOK {
		t.Errorf("page status = %d", rec.Code)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	f := newFixture(t, Options{Health: map[string]middleware.HealthChecker{
		"groq": middleware.CredentialChecker{Present: false},
	}})

	if rec := f.do(t, http.MethodGet, "/health", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/live", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("live = %d %q", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodGet, "/ready", "", ""); rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	if _, ok := decode(t, rec)["extractions_total"]; !ok {
		t.Errorf("metrics = %s", rec.Body.String())
	}
}

func TestRateLimitedUploads(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 1)
	defer limiter.Stop()
	f := newFixture(t, Options{RateLimiter: limiter, RefillRate: 1})

	if rec := f.upload(t, "/v1/resumes/extract", "cv.pdf", []byte("%PDF")); rec.Code != http.StatusOK {
		t.Fatalf("first = %d", rec.Code)
	}
	if rec := f.upload(t, "/v1/resumes/extract", "cv.pdf", []byte("%PDF")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d, want 429", rec.Code)
	}
}
