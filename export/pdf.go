package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pdfFont     = "Helvetica"
	pdfFontSize = 10.0
	pdfLine     = 5.0
	pdfMargin   = 15.0
)

// PDF renders the markdown guide, diagrams included, as an A4 document.
func PDF(w io.Writer, g Guide) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(true, pdfMargin)
	if g.Title != "" {
		doc.SetTitle(g.Title, true)
	}
	doc.AddPage()
	doc.SetFont(pdfFont, "", pdfFontSize)

	source := []byte(MarkdownWithImages(g))
	root := md.Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{
		pdf:    doc,
		source: source,
		tr:     doc.UnicodeTranslatorFromDescriptor(""),
		size:   pdfFontSize,
	}
	if err := ast.Walk(root, r.walk); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	if err := doc.Error(); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.Output(w)
}

// pdfRenderer writes a goldmark tree with fpdf's core fonts.
type pdfRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	tr     func(string) string // UTF-8 to cp1252
	size   float64
	bold   bool
	italic bool
	images int
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(pdfFont, style, r.size)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.size = max(pdfFontSize, 18-float64(n.Level)*2)
			r.bold = true
		} else {
			r.pdf.Ln(r.size * 0.6)
			r.size = pdfFontSize
			r.bold = false
		}
		r.updateFont()

	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(pdfLine + 1)
		}

	case *ast.ListItem:
		if entering {
			r.pdf.SetX(pdfMargin + 4)
			r.pdf.Write(pdfLine, "- ")
		}

	case *ast.TextBlock:
		if !entering {
			r.pdf.Ln(pdfLine)
		}

	case *ast.Emphasis:
		if n.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()

	case *ast.Text:
		if entering {
			r.pdf.Write(pdfLine, r.tr(string(n.Segment.Value(r.source))))
			if n.SoftLineBreak() || n.HardLineBreak() {
				r.pdf.Write(pdfLine, " ")
			}
		}

	case *ast.AutoLink:
		if entering {
			r.pdf.Write(pdfLine, r.tr(string(n.URL(r.source))))
		}

	case *ast.Image:
		if entering {
			if err := r.image(n); err != nil {
				return ast.WalkStop, err
			}
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// image draws an embedded PNG data URI at the current position, scaled to
// at most half the text width. Other sources are skipped.
func (r *pdfRenderer) image(n *ast.Image) error {
	const prefix = "data:image/png;base64,"
	dest := string(n.Destination)
	if !strings.HasPrefix(dest, prefix) {
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(dest[len(prefix):])
	if err != nil {
		return fmt.Errorf("invalid embedded image: %w", err)
	}

	r.images++
	name := fmt.Sprintf("diagram-%d", r.images)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if info == nil {
		return r.pdf.Error()
	}

	pageW, _ := r.pdf.GetPageSize()
	width := min((pageW-2*pdfMargin)/2, info.Width())
	r.pdf.Ln(2)
	r.pdf.ImageOptions(name, pdfMargin, r.pdf.GetY(), width, 0, true, opts, 0, "")
	r.pdf.Ln(2)
	return nil
}
