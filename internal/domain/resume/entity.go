package resume

import (
	"path/filepath"
	"strings"
)

// Format enum
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// UnsupportedWarning is shown to the user when the upload is neither PDF nor DOCX.
const UnsupportedWarning = "Unsupported file type. Please upload PDF or DOCX."

// Document is an uploaded resume. It lives only for the duration of one request.
type Document struct {
	Filename string
	Data     []byte
}

// Format resolves the document format from the filename extension.
func (d Document) Format() (Format, bool) {
	return FormatFromFilename(d.Filename)
}

// FormatFromFilename maps ".pdf" and ".docx" (any case) to a Format.
func FormatFromFilename(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, true
	case ".docx":
		return FormatDOCX, true
	default:
		return "", false
	}
}

// Extraction is the plain text pulled out of a Document.
type Extraction struct {
	Filename string `json:"filename"`
	Format   Format `json:"format,omitempty"`
	Text     string `json:"text"`
	// Units counts pages for PDF and body paragraphs for DOCX.
	Units int `json:"units"`
}
