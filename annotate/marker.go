package annotate

import "github.com/abiiranathan/pdfnotes/geom"

// MarkerType is the raw annotation class reported by the document parser.
type MarkerType int

const (
	MarkerOther MarkerType = iota
	MarkerStickyNote
	MarkerFreeText
	MarkerHighlight
	MarkerInk
)

func (t MarkerType) String() string {
	switch t {
	case MarkerStickyNote:
		return "sticky-note"
	case MarkerFreeText:
		return "free-text"
	case MarkerHighlight:
		return "highlight"
	case MarkerInk:
		return "ink"
	default:
		return "other"
	}
}

// Marker is an annotation as found on a page. Which geometry field is
// meaningful depends on Type: Quads for highlights, Rect for the rest.
type Marker struct {
	// ID identifies the marker within its document. Together with the page
	// number it forms the annotation key.
	ID       string
	Type     MarkerType
	Contents string // author-supplied text, may be empty
	Rect     geom.Rect
	Quads    []geom.Quad
}

// SemanticType is the class of a resolved annotation.
type SemanticType string

const (
	StickyNote  SemanticType = "Sticky Note"
	FreeText    SemanticType = "FreeText"
	Highlight   SemanticType = "Highlight"
	Handwritten SemanticType = "Handwritten"
	OCR         SemanticType = "OCR"
)

// semanticTypes maps each marker class that can be resolved to its
// semantic class. Markers not listed are skipped.
var semanticTypes = map[MarkerType]SemanticType{
	MarkerStickyNote: StickyNote,
	MarkerFreeText:   FreeText,
	MarkerHighlight:  Highlight,
	MarkerInk:        Handwritten,
}

// SemanticTypeOf returns the semantic class for t, or false if markers of
// type t are never resolved.
func SemanticTypeOf(t MarkerType) (SemanticType, bool) {
	st, ok := semanticTypes[t]
	return st, ok
}
