package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// CharsPerToken is the heuristic divisor for estimating tokens from
// character length. The average English word (and most note text) runs
// about four characters per model token.
const CharsPerToken = 4

// TokenCounter measures text size in tokens. The heuristic counter is the
// default; a real tokenizer can be substituted without changing call sites.
// All size thresholds in chunking configs are understood as heuristic
// tokens until a real tokenizer is swapped in.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter approximates token counts as character length divided
// by CharsPerToken. Non-empty text always counts as at least one token.
type HeuristicCounter struct{}

// Count implements TokenCounter.
func (HeuristicCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / CharsPerToken
	if n == 0 {
		n = 1
	}
	return n
}

// TiktokenCounter counts tokens with a real BPE tokenizer. Constructing
// one may fetch the encoding's vocabulary, so it is built once and shared.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter builds a counter for the named encoding. Empty
// defaults to cl100k_base.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count implements TokenCounter.
func (t *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// countTokens applies the counter, falling back to the heuristic when a
// strategy was constructed without one.
func countTokens(c TokenCounter, text string) int {
	if c == nil {
		c = HeuristicCounter{}
	}
	return c.Count(text)
}
