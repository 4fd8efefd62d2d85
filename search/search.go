// Package search finds stored annotations by keyword.
package search

import (
	"cmp"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/abiiranathan/pdfnotes/alg"
	"github.com/abiiranathan/pdfnotes/database"
	"github.com/bbalet/stopwords"
	"github.com/jdkato/prose/v2"
)

// Penalty added to hits found only in the page text around an annotation.
const contextPenalty = 100

// Words of page text kept on each side of a context hit.
const snippetRadius = 12

// Options narrows a search.
type Options struct {
	// Documents restricts the search to these document IDs when not empty.
	Documents []string

	// Limit caps the number of matches. Zero means 200.
	Limit int
}

// Match is an annotation that matched a query. Lower scores rank higher.
type Match struct {
	database.StoredAnnotation
	Snippet   string  `json:"snippet"`   // where the query was found
	InContext bool    `json:"in_context"` // found in the page text only
	Score     float32 `json:"score"`
}

// Query is a parsed search query.
type Query struct {
	Raw      string   // lower-cased original
	Cleaned  string   // without stop words
	Keywords []string // nouns, verbs and adjectives; every word if none
	Nouns    []string
}

// ParseQuery strips stop words from q and tags what is left.
func ParseQuery(q string) (Query, error) {
	const (
		NownSingular        = "NN"
		NownPlural          = "NNS"
		ProperNoun          = "NNP"
		Verb                = "VB"
		VerbSingularPresent = "VBZ"
		Adjective           = "JJ"
	)

	query := Query{Raw: strings.ToLower(strings.TrimSpace(q))}
	query.Cleaned = strings.TrimSpace(strings.ToLower(stopwords.CleanString(q, "en", false)))

	doc, err := prose.NewDocument(query.Cleaned, prose.WithExtraction(false), prose.WithSegmentation(false))
	if err != nil {
		return query, fmt.Errorf("unable to create query document: %w", err)
	}

	for _, token := range doc.Tokens() {
		switch token.Tag {
		case NownSingular, NownPlural, ProperNoun:
			query.Nouns = append(query.Nouns, token.Text)
			query.Keywords = append(query.Keywords, token.Text)
		case Verb, VerbSingularPresent, Adjective:
			query.Keywords = append(query.Keywords, token.Text)
		}
	}

	if len(query.Keywords) == 0 {
		query.Keywords = strings.Fields(query.Cleaned)
	}
	if len(query.Keywords) == 0 {
		query.Keywords = strings.Fields(query.Raw)
	}
	return query, nil
}

// Returns true if the string str contains any element in arr.
func stringContainsAny(str string, arr []string) bool {
	for _, item := range arr {
		if strings.Contains(str, item) {
			return true
		}
	}
	return false
}

// Search ranks entries against q. An annotation matches when its text, or
// failing that the page text around it, contains a keyword of the query.
func Search(q string, entries []database.StoredAnnotation, opts Options) ([]Match, error) {
	if opts.Limit <= 0 {
		opts.Limit = 200
	}

	query, err := ParseQuery(q)
	if err != nil {
		return nil, err
	}
	if len(query.Keywords) == 0 {
		return []Match{}, nil
	}

	numWorkers := min(runtime.NumCPU(), max(len(entries), 1))
	jobs := make(chan database.StoredAnnotation)
	results := make(chan Match)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for range numWorkers {
		go func() {
			defer wg.Done()
			for entry := range jobs {
				if m, ok := score(query, entry); ok {
					results <- m
				}
			}
		}()
	}

	go func() {
		for _, entry := range entries {
			if len(opts.Documents) > 0 && !slices.Contains(opts.Documents, entry.DocumentID) {
				continue
			}
			jobs <- entry
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	matches := []Match{}
	for m := range results {
		matches = append(matches, m)
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Or(
			cmp.Compare(a.Score, b.Score),
			cmp.Compare(b.Priority, a.Priority),
			cmp.Compare(a.DocumentName, b.DocumentName),
			cmp.Compare(a.Page, b.Page),
			cmp.Compare(a.Key, b.Key),
		)
	})

	// The same text is often annotated twice on a page.
	seen := make(map[string]struct{}, len(matches))
	unique := matches[:0]
	for _, m := range matches {
		id := m.DocumentID + "\x00" + m.Text
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, m)
	}

	if len(unique) > opts.Limit {
		unique = unique[:opts.Limit]
	}
	return unique, nil
}

func score(q Query, entry database.StoredAnnotation) (Match, bool) {
	text := strings.ToLower(entry.Text)
	m := Match{StoredAnnotation: entry}

	switch {
	case q.Raw != "" && strings.Contains(text, q.Raw):
		// The exact match is given a higher score (smaller distance).
		m.Snippet = entry.Text
		m.Score = float32(len(q.Raw)+len(text)) / 100

	case stringContainsAny(text, q.Keywords):
		m.Snippet = entry.Text
		m.Score = distance(text, q)

	default:
		context := strings.ToLower(entry.Context)
		if !stringContainsAny(context, q.Keywords) {
			return Match{}, false
		}
		if len(q.Nouns) > 0 && !stringContainsAny(context, q.Nouns) {
			return Match{}, false
		}
		m.InContext = true
		m.Snippet = snippet(entry.Context, q.Keywords)
		m.Score = contextPenalty + distance(strings.ToLower(m.Snippet), q)
	}
	return m, true
}

// distance combines the edit distance between text and the query with their
// term similarity, so that texts sharing more terms rank higher.
func distance(text string, q Query) float32 {
	lev := float32(stopwords.LevenshteinDistance([]byte(text), []byte(q.Cleaned), "en", false))
	return lev * (1 - alg.Similarity(text, q.Cleaned)/2)
}

// snippet returns the words of context around the first keyword hit.
func snippet(context string, keywords []string) string {
	words := strings.Fields(context)
	for i, w := range words {
		if !stringContainsAny(strings.ToLower(w), keywords) {
			continue
		}
		start := max(i-snippetRadius, 0)
		end := min(i+snippetRadius+1, len(words))
		return strings.Join(words[start:end], " ")
	}
	return ""
}
