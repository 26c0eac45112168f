package httpserver

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
)

//go:embed page.html
var pageHTML string

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

// pageData drives the single page. Extracted shows the text area and the
// analyze button; Analyzed shows the result section.
type pageData struct {
	MaxUploadMB int64
	Filename    string
	Text        string
	Extracted   bool
	Analysis    string
	Analyzed    bool
	Warning     string
	Error       string
}

func (r *Router) renderPage(w http.ResponseWriter, status int, data pageData) error {
	data.MaxUploadMB = r.maxUpload >> 20
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
