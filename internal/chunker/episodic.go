package chunker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/memweave/memweave/pkg/types"
)

// StrategyEventBoundary is the strategy name for episodic chunking.
const StrategyEventBoundary = "event_boundary"

// eventPatterns maps a boundary type to its registered patterns, in
// registration order. On exact-offset ties the first-registered pattern
// wins. Patterns match lifecycle markers commonly found in task-execution
// logs: agent phase headers, task/session markers, and horizontal rules.
var eventPatterns = map[types.BoundaryType][]*regexp.Regexp{
	types.BoundaryEvent: {
		regexp.MustCompile(`(?mi)^#{0,6}[ \t]*(?:perception|reasoning|execution|reflection)\b[^\n]*$`),
		regexp.MustCompile(`(?mi)^[ \t]*(?:task[ _-]?(?:start|end)|session[ _-]?(?:start|end))\b[^\n]*$`),
		regexp.MustCompile(`(?m)^[ \t]*(?:={3,}|-{3,})[ \t]*$`),
	},
}

// EventBoundaryChunker segments logs that carry explicit lifecycle
// markers. With Boundary set to fixed it degrades to plain fixed-size
// slicing, which covers working-state records with no markers at all.
type EventBoundaryChunker struct {
	counter TokenCounter
}

// NewEventBoundary creates the event-boundary strategy. A nil counter
// uses the heuristic.
func NewEventBoundary(tc TokenCounter) *EventBoundaryChunker {
	return &EventBoundaryChunker{counter: tc}
}

// Name implements Chunker.
func (e *EventBoundaryChunker) Name() string { return StrategyEventBoundary }

// DefaultConfig implements Chunker.
func (e *EventBoundaryChunker) DefaultConfig() *types.ChunkingConfig {
	return &types.ChunkingConfig{
		MaxTokens:       1024,
		OverlapTokens:   0,
		Boundary:        types.BoundaryEvent,
		TemporalLinking: true,
	}
}

// Validate implements Chunker.
func (e *EventBoundaryChunker) Validate(cfg *types.ChunkingConfig) *types.ValidationResult {
	vr := &types.ValidationResult{Valid: true}
	if cfg == nil {
		vr.AddError("config is required")
		return vr
	}
	validateCommon(cfg, vr)

	switch cfg.Boundary {
	case types.BoundaryEvent, types.BoundaryFixed, "":
		if cfg.Boundary == "" {
			vr.AddWarning("boundary type not set, defaulting to event")
		}
	default:
		vr.AddError(fmt.Sprintf("boundary type %q is not supported by the event strategy", cfg.Boundary))
	}
	return vr
}

// boundaryMark is one pattern match: its byte offset and the registration
// index of the pattern that produced it.
type boundaryMark struct {
	offset  int
	pattern int
}

// Chunk implements Chunker. The document is scanned for all registered
// patterns of the configured boundary type; slices between consecutive
// match offsets become chunks. No boundaries yields exactly one chunk
// containing the whole trimmed document, never zero chunks for non-empty
// input.
func (e *EventBoundaryChunker) Chunk(doc *types.Document, cfg *types.ChunkingConfig) (*types.ChunkingResult, error) {
	if err := precheck(e, doc, cfg); err != nil {
		return nil, err
	}
	started := time.Now()
	result := &types.ChunkingResult{}
	docID := documentID(doc)

	if strings.TrimSpace(doc.Content) == "" {
		result.AddWarning("document is empty, no chunks produced")
		result.Stats = computeStats(nil, e.Name(), started)
		return result, nil
	}

	boundary := cfg.Boundary
	if boundary == "" {
		boundary = types.BoundaryEvent
	}

	var pieces []string
	if boundary == types.BoundaryFixed {
		pieces = sliceFixed(doc.Content, cfg.MaxTokens, cfg.OverlapTokens)
	} else {
		offsets := e.boundaryOffsets(doc.Content, boundary)
		if len(offsets) == 0 {
			result.AddWarning("no event boundaries detected, emitted whole document as one chunk")
		}
		pieces = sliceAt(doc.Content, offsets)
	}

	chunks := make([]*types.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		tokens := countTokens(e.counter, piece)
		if tokens > cfg.MaxTokens {
			result.AddWarning(fmt.Sprintf("chunk %d exceeds max_tokens (%d > %d)", len(chunks), tokens, cfg.MaxTokens))
		}
		chunks = append(chunks, newChunk(doc, docID, e.Name(), types.LevelEpisodic, boundary, len(chunks), piece, tokens))
	}

	if boundary == types.BoundaryFixed && cfg.OverlapTokens > 0 {
		// Fixed slicing duplicates the configured overlap into each
		// window after the first.
		for i, c := range chunks {
			if i > 0 {
				c.Metadata.OverlapTokens = cfg.OverlapTokens
			}
		}
	}

	if cfg.TemporalLinking {
		linkChain(chunks)
	}

	result.Chunks = chunks
	result.Stats = computeStats(chunks, e.Name(), started)
	return result, nil
}

// boundaryOffsets collects the start offsets of every pattern match,
// sorted ascending with a stable first-registered-wins tie-break, then
// deduplicated by offset.
func (e *EventBoundaryChunker) boundaryOffsets(content string, boundary types.BoundaryType) []int {
	patterns := eventPatterns[boundary]

	var marks []boundaryMark
	for pi, re := range patterns {
		for _, loc := range re.FindAllStringIndex(content, -1) {
			marks = append(marks, boundaryMark{offset: loc[0], pattern: pi})
		}
	}
	sort.SliceStable(marks, func(i, j int) bool {
		if marks[i].offset != marks[j].offset {
			return marks[i].offset < marks[j].offset
		}
		return marks[i].pattern < marks[j].pattern
	})

	offsets := make([]int, 0, len(marks))
	for _, m := range marks {
		if len(offsets) > 0 && offsets[len(offsets)-1] == m.offset {
			continue
		}
		offsets = append(offsets, m.offset)
	}
	return offsets
}

// sliceAt splits content at the given ascending offsets. Text before the
// first offset becomes the leading slice.
func sliceAt(content string, offsets []int) []string {
	if len(offsets) == 0 {
		return []string{content}
	}

	var pieces []string
	if offsets[0] > 0 {
		pieces = append(pieces, content[:offsets[0]])
	}
	for i, off := range offsets {
		end := len(content)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		pieces = append(pieces, content[off:end])
	}
	return pieces
}

// sliceFixed cuts content into fixed-size windows of maxTokens with the
// configured overlap, on rune boundaries.
func sliceFixed(content string, maxTokens, overlapTokens int) []string {
	runes := []rune(content)
	maxChars := maxTokens * CharsPerToken
	overlapChars := overlapTokens * CharsPerToken
	if maxChars <= 0 || len(runes) <= maxChars {
		return []string{content}
	}

	step := maxChars - overlapChars
	if step <= 0 {
		step = maxChars
	}

	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return pieces
}
