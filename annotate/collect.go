package annotate

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Collect resolves the structured markers of every page of doc. Pages
// without a resolved annotation are absent from the returned index.
//
// Cancellation is checked between pages. A page whose markers cannot be
// read contributes nothing; it does not stop the walk.
func (e *Extractor) Collect(ctx context.Context, doc Document) (*Index, error) {
	pages, err := doc.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	// One slot per page, each written by exactly one goroutine.
	slots := make([][]Annotation, len(pages))

	if e.cfg.Concurrency == 1 {
		for i, p := range pages {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slots[i] = e.collectPage(p)
		}
		return NewIndex(slices.Concat(slots...)...), nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, p := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = e.collectPage(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewIndex(slices.Concat(slots...)...), nil
}

// CollectPage resolves the markers of a single page in source order.
func (e *Extractor) CollectPage(p Page) []Annotation {
	return e.collectPage(p)
}

func (e *Extractor) collectPage(p Page) []Annotation {
	page := p.Number()

	markers, err := p.Markers()
	if err != nil {
		e.logger.Warn().Err(err).Int("page", page).Msg("failed to read markers")
		return nil
	}

	var (
		out      []Annotation
		pageText string
		loaded   bool
	)
	for _, m := range markers {
		st, text, ok := e.Classify(m, p)
		if !ok {
			continue
		}

		if !loaded {
			pageText = e.pageContext(p)
			loaded = true
		}

		out = append(out, Annotation{
			Page:     page,
			Type:     st,
			Text:     text,
			Context:  pageText,
			Key:      Key(page, m.ID),
			Priority: PriorityOf(text),
		})
	}
	return out
}

func (e *Extractor) pageContext(p Page) string {
	text, err := p.Text()
	if err != nil {
		e.logger.Warn().Err(err).Int("page", p.Number()).Msg("failed to read page text")
		return ""
	}
	return singleLine(text)
}
