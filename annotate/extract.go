package annotate

import (
	"context"
	"fmt"
)

// Result is the outcome of Extract.
type Result struct {
	Index *Index `json:"index"`

	// Fallback is set when Index came from the full-page recognition pass.
	Fallback   bool             `json:"fallback"`
	Highlights map[int][]string `json:"highlights,omitempty"`
	Failures   []PageFailure    `json:"failures,omitempty"`
}

// Extract runs Collect and, only when it finds nothing, RunFallback.
// It returns ErrNothingExtractable, together with the partial result, when
// neither pass produced an annotation.
func (e *Extractor) Extract(ctx context.Context, doc Document) (*Result, error) {
	idx, err := e.Collect(ctx, doc)
	if err != nil {
		return nil, err
	}
	if !idx.Empty() {
		return &Result{Index: idx}, nil
	}

	e.logger.Info().Msg("no structured annotations found, recognising full pages")

	if e.rec == nil {
		return &Result{Index: idx}, fmt.Errorf("%w: %w", ErrNothingExtractable, ErrNoRecognizer)
	}

	fb, err := e.RunFallback(ctx, doc)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Index:      fb.Index,
		Fallback:   true,
		Highlights: fb.Highlights,
		Failures:   fb.Failures,
	}
	if fb.Index.Empty() {
		return res, ErrNothingExtractable
	}
	return res, nil
}
