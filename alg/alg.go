// Package alg holds the text similarity measures used to rank search hits.
package alg

import (
	"math"
	"strings"

	"github.com/jdkato/prose/v2"
)

// TermFrequency returns the relative frequency of each lower-cased token in
// text. Punctuation tokens are ignored.
func TermFrequency(text string) map[string]float64 {
	doc, err := prose.NewDocument(strings.ToLower(text),
		prose.WithTagging(false), prose.WithSegmentation(false), prose.WithExtraction(false))
	if err != nil {
		return nil
	}

	tf := make(map[string]float64)
	total := 0
	for _, token := range doc.Tokens() {
		if !isWord(token.Text) {
			continue
		}
		tf[token.Text]++
		total++
	}
	for term := range tf {
		tf[term] /= float64(total)
	}
	return tf
}

func isWord(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r > 0x7f {
			return true
		}
	}
	return false
}

// CosineSimilarity returns the cosine of the angle between two term vectors,
// 0 when either is empty.
func CosineSimilarity(tf1, tf2 map[string]float64) float32 {
	dotProduct := 0.0
	magnitude1 := 0.0
	magnitude2 := 0.0

	for term, score1 := range tf1 {
		if score2, exists := tf2[term]; exists {
			dotProduct += score1 * score2
		}
		magnitude1 += score1 * score1
	}
	for _, score2 := range tf2 {
		magnitude2 += score2 * score2
	}

	magnitude1 = math.Sqrt(magnitude1)
	magnitude2 = math.Sqrt(magnitude2)

	if magnitude1 != 0 && magnitude2 != 0 {
		return float32(dotProduct / (magnitude1 * magnitude2))
	}
	return 0.0
}

// Similarity compares two texts by term frequency. 1 means the same terms in
// the same proportions.
func Similarity(a, b string) float32 {
	return CosineSimilarity(TermFrequency(a), TermFrequency(b))
}
