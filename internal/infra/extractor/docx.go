package extractor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/resume"
)

func extractDOCX(data []byte) (string, int, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: docx: %v", domain.ErrUnreadableDocument, err)
	}
	defer r.Close()

	paragraphs, err := bodyParagraphs(r.Editable().GetContent())
	if err != nil {
		return "", 0, fmt.Errorf("%w: docx: %v", domain.ErrUnreadableDocument, err)
	}

	var b strings.Builder
	for _, p := range paragraphs {
		b.WriteString(p)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), len(paragraphs), nil
}

// bodyParagraphs walks word/document.xml and returns the text of every paragraph
// that is a direct child of <w:body>, in document order. Only runs directly under
// the paragraph or under one of its hyperlinks are read, so tracked insertions,
// field results, tables and text boxes are skipped. Tabs become "\t" and line
// breaks "\n"; page breaks add nothing.
func bodyParagraphs(content string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		stack      []string
		paragraphs []string
		cur        strings.Builder
		paraDepth  = -1 // stack depth of the open body paragraph
	)

	// inRun reports whether the top of the stack is a direct child of a readable run.
	inRun := func() bool {
		if paraDepth < 0 {
			return false
		}
		rel := stack[paraDepth:]
		switch {
		case len(rel) == 2 && rel[0] == "r":
			return true
		case len(rel) == 3 && rel[0] == "hyperlink" && rel[1] == "r":
			return true
		}
		return false
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, t.Name.Local)

			if t.Name.Local == "p" && parent == "body" {
				paraDepth = len(stack)
				cur.Reset()
				continue
			}
			if !inRun() {
				continue
			}
			switch t.Name.Local {
			case "tab", "ptab":
				cur.WriteByte('\t')
			case "cr":
				cur.WriteByte('\n')
			case "br":
				// page and column breaks carry no text
				if bt := breakType(t); bt == "" || bt == "textWrapping" {
					cur.WriteByte('\n')
				}
			case "noBreakHyphen":
				cur.WriteByte('-')
			}

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			if paraDepth == len(stack) {
				paragraphs = append(paragraphs, cur.String())
				paraDepth = -1
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 && stack[len(stack)-1] == "t" && inRun() {
				cur.Write(t)
			}
		}
	}
	return paragraphs, nil
}

func breakType(el xml.StartElement) string {
	for _, a := range el.Attr {
		if a.Name.Local == "type" {
			return a.Value
		}
	}
	return ""
}
