// Package export renders an annotation index and its study aids as a study
// guide: markdown, HTML, PDF, or a zip of the diagrams.
package export

import (
	"archive/zip"
	"encoding/base64"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/abiiranathan/pdfnotes/database"
)

// Guide is everything a study guide is made from.
type Guide struct {
	Title    string
	Index    *annotate.Index
	Notes    map[string]database.Notes // by annotation key
	Diagrams map[string][]byte         // PNG, by annotation key
}

// Format names an export format.
type Format string

const (
	FormatMarkdown       Format = "md"
	FormatMarkdownImages Format = "md-images"
	FormatHTML           Format = "html"
	FormatPDF            Format = "pdf"
	FormatZip            Format = "zip"
)

// Formats lists the supported formats.
var Formats = []Format{FormatMarkdown, FormatMarkdownImages, FormatHTML, FormatPDF, FormatZip}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatZip:
		return "application/zip"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Extension returns the file extension of f, with the dot.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatPDF:
		return ".pdf"
	case FormatZip:
		return ".zip"
	default:
		return ".md"
	}
}

// Write renders g in format f to w.
func Write(w io.Writer, f Format, g Guide) error {
	switch f {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(g))
		return err
	case FormatMarkdownImages:
		_, err := io.WriteString(w, MarkdownWithImages(g))
		return err
	case FormatHTML:
		return HTML(w, g)
	case FormatPDF:
		return PDF(w, g)
	case FormatZip:
		return DiagramsZip(w, g.Diagrams)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// Markdown renders one section per page, each annotation followed by its
// preferred study aids.
func Markdown(g Guide) string {
	return markdown(g, false)
}

// MarkdownWithImages is Markdown with each diagram embedded as a data URI.
func MarkdownWithImages(g Guide) string {
	return markdown(g, true)
}

func markdown(g Guide, images bool) string {
	var lines []string
	if g.Title != "" {
		lines = append(lines, fmt.Sprintf("# %s\n", g.Title))
	}

	level := "#"
	if g.Title != "" {
		level = "##"
	}

	for _, page := range g.Index.Pages() {
		lines = append(lines, fmt.Sprintf("%s Slide %d\n", level, page))
		for _, a := range g.Index.Annotations(page) {
			lines = append(lines, fmt.Sprintf("**%s**: %s\n", a.Type, a.Text))

			aids := g.Notes[a.Key].Preferred()
			lines = append(lines,
				"- **ELI5:** "+aids.ELI5,
				"- **Mnemonic:** "+aids.Mnemonic,
				"- **Analogy:** "+aids.Analogy,
			)

			if img := g.Diagrams[a.Key]; images && len(img) > 0 {
				lines = append(lines, fmt.Sprintf("\n![diagram_%s](data:image/png;base64,%s)",
					a.Key, base64.StdEncoding.EncodeToString(img)))
			}
			lines = append(lines, "\n")
		}
	}
	return strings.Join(lines, "\n")
}

// DiagramsZip writes a zip archive holding diagram_{key}.png for every
// non-empty diagram, in key order.
func DiagramsZip(w io.Writer, diagrams map[string][]byte) error {
	zw := zip.NewWriter(w)
	for _, key := range slices.Sorted(maps.Keys(diagrams)) {
		img := diagrams[key]
		if len(img) == 0 {
			continue
		}

		f, err := zw.Create(fmt.Sprintf("diagram_%s.png", key))
		if err != nil {
			return err
		}
		if _, err := f.Write(img); err != nil {
			return err
		}
	}
	return zw.Close()
}
