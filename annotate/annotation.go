package annotate

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Annotation is a marker resolved to non-empty text, together with the text
// of the page it sits on.
type Annotation struct {
	Page     int          `json:"page"`
	Type     SemanticType `json:"type"`
	Text     string       `json:"text"`
	Context  string       `json:"context"`
	Key      string       `json:"key"`
	Priority int          `json:"priority"`
}

// Priorities. Full-page OCR entries rank lowest.
const (
	PriorityOCR      = 0
	PriorityNormal   = 1
	PriorityQuestion = 2
)

// Key returns the stable join key of a marker.
func Key(page int, markerID string) string {
	return fmt.Sprintf("%d-%s", page, markerID)
}

// OCRKey returns the key of a page's full-page OCR entry.
func OCRKey(page int) string {
	return Key(page, "ocr")
}

// PriorityOf ranks resolved text: questions first.
func PriorityOf(text string) int {
	if strings.Contains(text, "?") {
		return PriorityQuestion
	}
	return PriorityNormal
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine trims text and replaces its line breaks with spaces.
func singleLine(text string) string {
	return lineBreaks.Replace(strings.TrimSpace(text))
}

// Index is the extraction result of a whole document: the annotations of
// every page that has any, keyed by 1-based page number. An Index is not
// modified after it is returned.
type Index struct {
	pages  []int
	byPage map[int][]Annotation
}

// NewIndex groups annotations by page. Pages are ordered by number;
// annotations keep their relative order.
func NewIndex(annotations ...Annotation) *Index {
	ix := &Index{byPage: make(map[int][]Annotation)}
	for _, a := range annotations {
		if _, ok := ix.byPage[a.Page]; !ok {
			ix.pages = append(ix.pages, a.Page)
		}
		ix.byPage[a.Page] = append(ix.byPage[a.Page], a)
	}
	slices.Sort(ix.pages)
	return ix
}

// Pages returns the page numbers that have annotations, ascending.
func (ix *Index) Pages() []int {
	return slices.Clone(ix.pages)
}

// Annotations returns the annotations of page in extraction order.
func (ix *Index) Annotations(page int) []Annotation {
	return slices.Clone(ix.byPage[page])
}

// ByPriority returns the annotations of page, highest priority first.
// Annotations of equal priority keep extraction order.
func (ix *Index) ByPriority(page int) []Annotation {
	out := ix.Annotations(page)
	slices.SortStableFunc(out, func(a, b Annotation) int {
		return b.Priority - a.Priority
	})
	return out
}

// All returns every annotation, page by page.
func (ix *Index) All() []Annotation {
	var out []Annotation
	for _, p := range ix.pages {
		out = append(out, ix.byPage[p]...)
	}
	return out
}

// Lookup finds an annotation by key.
func (ix *Index) Lookup(key string) (Annotation, bool) {
	for _, p := range ix.pages {
		for _, a := range ix.byPage[p] {
			if a.Key == key {
				return a, true
			}
		}
	}
	return Annotation{}, false
}

// Len returns the number of pages with annotations.
func (ix *Index) Len() int {
	return len(ix.pages)
}

// Count returns the total number of annotations.
func (ix *Index) Count() int {
	n := 0
	for _, a := range ix.byPage {
		n += len(a)
	}
	return n
}

// Empty reports whether no page has annotations.
func (ix *Index) Empty() bool {
	return ix == nil || len(ix.pages) == 0
}

type indexPage struct {
	Page        int          `json:"page"`
	Annotations []Annotation `json:"annotations"`
}

// MarshalJSON encodes the index as a list of pages in page order.
func (ix *Index) MarshalJSON() ([]byte, error) {
	out := make([]indexPage, 0, len(ix.pages))
	for _, p := range ix.pages {
		out = append(out, indexPage{Page: p, Annotations: ix.byPage[p]})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (ix *Index) UnmarshalJSON(data []byte) error {
	var in []indexPage
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var all []Annotation
	for _, p := range in {
		all = append(all, p.Annotations...)
	}
	*ix = *NewIndex(all...)
	return nil
}
