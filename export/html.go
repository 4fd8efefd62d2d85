package export

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 50rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
img { max-width: 100%%; }
h1, h2 { border-bottom: 1px solid #ddd; }
</style>
</head>
<body>
`

// HTML renders the markdown guide, diagrams included, as a standalone page.
func HTML(w io.Writer, g Guide) error {
	title := g.Title
	if title == "" {
		title = "Study notes"
	}

	var body bytes.Buffer
	if err := md.Convert([]byte(MarkdownWithImages(g)), &body); err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	if _, err := fmt.Fprintf(w, htmlHead, html.EscapeString(title)); err != nil {
		return err
	}
	if _, err := body.WriteTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}
