package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicCounter(t *testing.T) {
	c := HeuristicCounter{}

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short text floors to one", "ab", 1},
		{"exact division", strings.Repeat("a", 40), 10},
		{"rounds down", strings.Repeat("a", 43), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Count(tt.text))
		})
	}
}

func TestCountTokens_NilFallsBackToHeuristic(t *testing.T) {
	assert.Equal(t, HeuristicCounter{}.Count("hello world"), countTokens(nil, "hello world"))
}

type fixedCounter struct{ n int }

func (f fixedCounter) Count(string) int { return f.n }

func TestCountTokens_CustomCounter(t *testing.T) {
	assert.Equal(t, 7, countTokens(fixedCounter{n: 7}, "anything"))
}
