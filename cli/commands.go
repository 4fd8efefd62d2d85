package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/abiiranathan/pdfnotes/annotate"
	"github.com/abiiranathan/pdfnotes/database"
	"github.com/abiiranathan/pdfnotes/export"
	"github.com/abiiranathan/pdfnotes/ocr"
	"github.com/abiiranathan/pdfnotes/search"
	"github.com/abiiranathan/pdfnotes/service"
	"github.com/rs/zerolog"
)

// Open connects the store and builds the service described by config.
// Without OCR support ink notes and scanned documents are skipped. The
// returned function releases everything.
func Open(config *Config, logger zerolog.Logger) (*service.Service, func(), error) {
	store, err := database.Connect(config.Database, logger)
	if err != nil {
		return nil, nil, err
	}

	var rec annotate.Recognizer
	client, err := ocr.New(config.OCR)
	switch {
	case err == nil:
		rec = client
	case errors.Is(err, ocr.ErrOCRNotEnabled):
		logger.Warn().Msg("OCR support not compiled in; ink notes and scanned pages are skipped")
	default:
		store.Close()
		return nil, nil, err
	}

	ex := annotate.New(config.Extraction, rec, annotate.WithLogger(logger))
	svc := service.New(store, ex,
		service.WithLogger(logger),
		service.WithConcurrency(config.MaxConcurrency))

	closeFn := func() {
		client.Close()
		store.Close()
	}
	return svc, closeFn, nil
}

func printExtraction(w io.Writer, ext *service.Extraction) {
	res := ext.Result
	source := "annotations"
	if res.Fallback {
		source = "OCR"
	}
	fmt.Fprintf(w, "%s [%s]: %d entries on %d pages from %s\n",
		ext.Document.Name, ext.Document.ID[:12], res.Index.Count(), res.Index.Len(), source)

	for _, page := range res.Index.Pages() {
		for _, a := range res.Index.ByPriority(page) {
			fmt.Fprintf(w, "  Page %d (%s): %s\n", a.Page, a.Type, a.Text)
		}
		for _, h := range res.Highlights[page] {
			fmt.Fprintf(w, "  Page %d (highlighted): %s\n", page, h)
		}
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  %v\n", f)
	}
}

// Extract extracts one PDF and prints what was found.
func Extract(ctx context.Context, svc *service.Service, path string, w io.Writer) error {
	ext, err := svc.ExtractFile(ctx, path)
	if err != nil {
		return err
	}
	printExtraction(w, ext)
	return nil
}

// ExtractDir extracts every PDF under dir. It fails only when no file could
// be extracted.
func ExtractDir(ctx context.Context, svc *service.Service, dir string, w io.Writer) error {
	exts, failures, err := svc.ExtractDir(ctx, dir)
	if err != nil {
		return err
	}

	for _, ext := range exts {
		printExtraction(w, ext)
	}
	for _, f := range failures {
		fmt.Fprintf(w, "failed: %v\n", f)
	}

	if len(exts) == 0 && len(failures) > 0 {
		return fmt.Errorf("none of the %d files in %s could be extracted", len(failures), dir)
	}
	return nil
}

// Export writes the study guide of a stored document.
func Export(ctx context.Context, svc *service.Service, docID, format string, w io.Writer) error {
	f := export.Format(format)
	if !slices.Contains(export.Formats, f) {
		return fmt.Errorf("unknown export format %q, want one of %v", format, export.Formats)
	}
	return svc.Export(ctx, w, docID, f)
}

// Search prints the stored annotations matching pattern.
func Search(ctx context.Context, svc *service.Service, pattern string, limit int, w io.Writer) error {
	matches, err := svc.Search(ctx, pattern, search.Options{Limit: limit})
	if err != nil {
		return err
	}

	for _, m := range matches {
		fmt.Fprintf(w, "%s Page: %d : %s\n", m.DocumentName, m.Page, m.Snippet)
	}
	return nil
}
