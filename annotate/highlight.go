package annotate

import (
	"strings"
	"unicode/utf8"

	"github.com/abiiranathan/pdfnotes/geom"
)

// HighlightOptions tunes how highlight quadrilaterals are matched to words.
type HighlightOptions struct {
	// A word belongs to a quadrilateral when strictly more than this share
	// of its box lies inside the quadrilateral's bounding box.
	Threshold float64 `toml:"overlap_threshold" validate:"gt=0,lt=1"`

	// Chunks of this many characters or fewer are dropped as stray
	// punctuation.
	MinChunkLength int `toml:"min_chunk_length" validate:"min=0"`

	// Separator joins the chunks of separate quadrilaterals.
	Separator string `toml:"chunk_separator"`
}

// DefaultHighlightOptions returns majority overlap, chunks longer than two
// characters and " / " between chunks.
func DefaultHighlightOptions() HighlightOptions {
	return HighlightOptions{
		Threshold:      0.5,
		MinChunkLength: 2,
		Separator:      " / ",
	}
}

// ResolveHighlight recovers the text covered by a highlight. Each
// quadrilateral yields one chunk made of the words it covers, in page word
// order; chunks are joined in quadrilateral order. An empty result means the
// highlight could not be resolved.
func ResolveHighlight(quads []geom.Quad, words []geom.Word, opts HighlightOptions) string {
	chunks := make([]string, 0, len(quads))
	for _, q := range quads {
		box := q.Rect()

		var picked []string
		for _, w := range words {
			if geom.OverlapFraction(w.Rect, box) > opts.Threshold {
				picked = append(picked, w.Text)
			}
		}

		chunk := strings.Join(picked, " ")
		if utf8.RuneCountInString(chunk) > opts.MinChunkLength {
			chunks = append(chunks, chunk)
		}
	}
	return strings.Join(chunks, opts.Separator)
}
