package annotate

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// FallbackResult is the outcome of the full-page recognition pass.
type FallbackResult struct {
	// Index holds one OCR entry for every page that could be recognised.
	Index *Index

	// Highlights lists, per page, the text of the highlighter marks found
	// by colour. It is informational and not part of the index.
	Highlights map[int][]string

	// Failures lists the pages left out of Index, in page order.
	Failures []PageFailure
}

type fallbackPage struct {
	annotation *Annotation
	highlights []string
	failure    *PageFailure
}

// RunFallback recognises the text of every rendered page of doc. It is meant
// for documents where Collect found nothing. A page that cannot be rendered
// or recognised is reported in Failures and the walk continues.
func (e *Extractor) RunFallback(ctx context.Context, doc Document) (*FallbackResult, error) {
	if e.rec == nil {
		return nil, ErrNoRecognizer
	}

	pages, err := doc.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	results := make([]fallbackPage, len(pages))

	if e.cfg.Concurrency == 1 {
		for i, p := range pages {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = e.fallbackPage(p)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Concurrency)
		for i, p := range pages {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.fallbackPage(p)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	res := &FallbackResult{Highlights: make(map[int][]string)}
	var all []Annotation
	for _, r := range results {
		if r.failure != nil {
			res.Failures = append(res.Failures, *r.failure)
			continue
		}
		all = append(all, *r.annotation)
		if len(r.highlights) > 0 {
			res.Highlights[r.annotation.Page] = r.highlights
		}
	}
	slices.SortFunc(res.Failures, func(a, b PageFailure) int {
		return a.Page - b.Page
	})
	res.Index = NewIndex(all...)
	return res, nil
}

func (e *Extractor) fallbackPage(p Page) fallbackPage {
	page := p.Number()
	fail := func(err error) fallbackPage {
		e.logger.Warn().Err(err).Int("page", page).Msg("page recognition failed")
		return fallbackPage{failure: &PageFailure{Page: page, Err: err}}
	}

	img, err := p.Rasterize(e.cfg.FallbackScale, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to render page: %w", err))
	}

	text, err := e.rec.RecognizeImage(img)
	if err != nil {
		return fail(fmt.Errorf("failed to recognise page: %w", err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = e.cfg.EmptyOCRPlaceholder
	}

	highlights, err := e.detector.Detect(img)
	if err != nil {
		e.logger.Warn().Err(err).Int("page", page).Msg("highlight detection failed")
	}

	return fallbackPage{
		annotation: &Annotation{
			Page:     page,
			Type:     OCR,
			Text:     text,
			Context:  text,
			Key:      OCRKey(page),
			Priority: PriorityOCR,
		},
		highlights: highlights,
	}
}
