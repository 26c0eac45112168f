package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/resume"
)

// pageSource yields the text layer of each page, 1-based.
type pageSource interface {
	NumPage() int
	PageText(i int) string
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.r.NumPage() }

// PageText returns "" for pages without a usable text layer (image-only scans,
// missing content streams).
func (p pdfPages) PageText(i int) string {
	page := p.r.Page(i)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// joinPages concatenates every page in order and trims the result.
func joinPages(src pageSource) (string, int) {
	var b strings.Builder
	n := src.NumPage()
	for i := 1; i <= n; i++ {
		b.WriteString(src.PageText(i))
	}
	return strings.TrimSpace(b.String()), n
}

func extractPDF(data []byte) (text string, pages int, err error) {
	// the parser panics on some broken page trees
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("%w: pdf: %v", domain.ErrUnreadableDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: pdf: %v", domain.ErrUnreadableDocument, err)
	}
	text, pages = joinPages(pdfPages{r: r})
	return text, pages, nil
}
