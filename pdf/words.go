package pdf

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/abiiranathan/pdfnotes/geom"
)

// wordsFromLayout groups the characters of text into whitespace separated
// words. boxes holds one rectangle per character of text, in order, as
// returned by poppler's text layout. Characters without a box are dropped.
func wordsFromLayout(text string, boxes []geom.Rect) []geom.Word {
	words := []geom.Word{}

	var (
		sb   strings.Builder
		rect geom.Rect
	)
	flush := func() {
		if sb.Len() > 0 {
			words = append(words, geom.Word{Rect: rect, Text: sb.String()})
		}
		sb.Reset()
		rect = geom.Rect{}
	}

	i := 0
	for _, r := range text {
		if i >= len(boxes) {
			break
		}
		box := boxes[i]
		i++

		if unicode.IsSpace(r) {
			flush()
			continue
		}
		if sb.Len() == 0 {
			rect = box
		} else {
			rect = rect.Union(box)
		}
		sb.WriteRune(r)
	}
	flush()
	return words
}

var positional = regexp.MustCompile(`^a[0-9]+$`)

// markerIDs turns the annotation names (/NM) of one page into ids that are
// unique on the page and stable across runs. A name is kept when no other
// annotation on the page shares it and it does not look positional.
// Everything else is "a" followed by its position.
func markerIDs(names []string) []string {
	count := make(map[string]int, len(names))
	for _, name := range names {
		count[name]++
	}

	ids := make([]string, len(names))
	for i, name := range names {
		if name != "" && count[name] == 1 && !positional.MatchString(name) {
			ids[i] = name
			continue
		}
		ids[i] = fmt.Sprintf("a%d", i)
	}
	return ids
}
