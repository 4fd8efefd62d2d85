package annotate

import (
	"errors"
	"strings"
)

var (
	errUnsupported  = errors.New("unsupported marker type")
	errEmptyContent = errors.New("marker has no content")
	errNoOverlap    = errors.New("highlight covers no words")
)

// Classify resolves m to its semantic class and text. It reports false when
// the marker cannot be resolved to non-empty text; the reason is logged at
// debug level and never returned.
func (e *Extractor) Classify(m Marker, p Page) (SemanticType, string, bool) {
	st, text, err := e.classify(m, p)
	if err != nil {
		e.logger.Debug().
			Err(err).
			Int("page", p.Number()).
			Str("marker", m.ID).
			Stringer("type", m.Type).
			Msg("skipping marker")
		return "", "", false
	}
	return st, text, true
}

func (e *Extractor) classify(m Marker, p Page) (SemanticType, string, error) {
	st, ok := SemanticTypeOf(m.Type)
	if !ok {
		return "", "", errUnsupported
	}

	var (
		text string
		err  error
	)
	switch m.Type {
	case MarkerStickyNote, MarkerFreeText:
		text = m.Contents
	case MarkerHighlight:
		text, err = e.resolveHighlight(m, p)
	case MarkerInk:
		text, err = e.recognizeInk(m, p)
	}
	if err != nil {
		return "", "", err
	}

	// Note contents are kept verbatim, whitespace included.
	empty := strings.TrimSpace(text) == ""
	if m.Type == MarkerStickyNote || m.Type == MarkerFreeText {
		empty = text == ""
	}
	if empty {
		if m.Type == MarkerHighlight {
			return "", "", errNoOverlap
		}
		return "", "", errEmptyContent
	}
	return st, text, nil
}

func (e *Extractor) resolveHighlight(m Marker, p Page) (string, error) {
	words, err := p.Words()
	if err != nil {
		return "", err
	}
	return ResolveHighlight(m.Quads, words, e.cfg.Highlight), nil
}

func (e *Extractor) recognizeInk(m Marker, p Page) (string, error) {
	if e.rec == nil {
		return "", ErrNoRecognizer
	}

	clip := m.Rect
	img, err := p.Rasterize(e.cfg.InkScale, &clip)
	if err != nil {
		return "", err
	}

	text, err := e.rec.RecognizeImage(img)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
