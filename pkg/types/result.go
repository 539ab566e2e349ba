package types

import "time"

// ChunkStats aggregates sizing statistics for one chunking call.
type ChunkStats struct {
	ChunkCount  int
	TotalTokens int
	AvgTokens   float64
	MinTokens   int
	MaxTokens   int
	Duration    time.Duration
	Strategy    string
}

// ChunkingResult is the complete output of one chunking call: the ordered
// chunk list, aggregate statistics, and any non-fatal processing warnings.
type ChunkingResult struct {
	Chunks   []*Chunk
	Stats    ChunkStats
	Warnings []string
}

// AddWarning appends a processing warning to the result.
func (r *ChunkingResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
