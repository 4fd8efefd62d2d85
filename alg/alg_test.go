package alg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermFrequency(t *testing.T) {
	tf := TermFrequency("ATP, atp and ADP.")
	assert.InDelta(t, 0.5, tf["atp"], 1e-9)
	assert.InDelta(t, 0.25, tf["adp"], 1e-9)
	assert.NotContains(t, tf, ",")
	assert.NotContains(t, tf, ".")

	assert.Empty(t, TermFrequency(""))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float32
		max  float32
	}{
		{"identical", "This is a test", "This is a test", 0.999, 1.001},
		{"case insensitive", "Krebs Cycle", "krebs cycle", 0.999, 1.001},
		{"disjoint", "This is a test", "does not match", 0, 0.001},
		{"partial", "the krebs cycle", "krebs", 0.1, 0.9},
		{"empty", "", "anything", 0, 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}
