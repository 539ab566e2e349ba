package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/memweave/memweave/pkg/types"
)

// StrategyStepBoundary is the strategy name for procedural chunking.
const StrategyStepBoundary = "step_boundary"

// defaultStepDelimiters are line prefixes (after trimming) that start a
// new step in a procedure.
var defaultStepDelimiters = []string{"## Step", "### Step", "Step "}

var (
	prerequisiteLine = regexp.MustCompile(`(?i)^\s*(?:prerequisites?|requires?)\s*[:\-]\s*(.+)$`)
	outcomeLine      = regexp.MustCompile(`(?i)^\s*(?:outcome|result|expected result)\s*[:\-]\s*(.+)$`)
)

// StepBoundaryChunker segments step-structured procedures. Step order is
// inherently meaningful, so chunks are always linked sequentially,
// independent of any temporal-linking flag.
type StepBoundaryChunker struct {
	counter TokenCounter
}

// NewStepBoundary creates the step-boundary strategy. A nil counter uses
// the heuristic.
func NewStepBoundary(tc TokenCounter) *StepBoundaryChunker {
	return &StepBoundaryChunker{counter: tc}
}

// Name implements Chunker.
func (s *StepBoundaryChunker) Name() string { return StrategyStepBoundary }

// DefaultConfig implements Chunker.
func (s *StepBoundaryChunker) DefaultConfig() *types.ChunkingConfig {
	delims := make([]string, len(defaultStepDelimiters))
	copy(delims, defaultStepDelimiters)
	return &types.ChunkingConfig{
		MaxTokens:            512,
		StepDelimiters:       delims,
		IncludePrerequisites: true,
		IncludeOutcomes:      true,
	}
}

// Validate implements Chunker. An empty delimiter list is allowed and
// falls back to the built-in defaults.
func (s *StepBoundaryChunker) Validate(cfg *types.ChunkingConfig) *types.ValidationResult {
	vr := &types.ValidationResult{Valid: true}
	if cfg == nil {
		vr.AddError("config is required")
		return vr
	}
	validateCommon(cfg, vr)

	for _, d := range cfg.StepDelimiters {
		if d == "" {
			vr.AddError("step_delimiters must not contain empty entries")
			break
		}
	}
	if len(cfg.StepDelimiters) == 0 {
		vr.AddWarning("step_delimiters empty, using built-in defaults")
	}
	return vr
}

// Chunk implements Chunker. Any line whose trimmed form starts with a
// configured delimiter starts a new step buffer and flushes the prior
// buffer as a completed chunk. Text before the first delimiter becomes a
// leading chunk when non-empty.
func (s *StepBoundaryChunker) Chunk(doc *types.Document, cfg *types.ChunkingConfig) (*types.ChunkingResult, error) {
	if err := precheck(s, doc, cfg); err != nil {
		return nil, err
	}
	started := time.Now()
	result := &types.ChunkingResult{}
	docID := documentID(doc)

	if strings.TrimSpace(doc.Content) == "" {
		result.AddWarning("document is empty, no chunks produced")
		result.Stats = computeStats(nil, s.Name(), started)
		return result, nil
	}

	delimiters := cfg.StepDelimiters
	if len(delimiters) == 0 {
		delimiters = defaultStepDelimiters
	}

	var (
		chunks    []*types.Chunk
		buf       []string
		sawDelims bool
	)

	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if content == "" {
			return
		}
		tokens := countTokens(s.counter, content)
		if tokens > cfg.MaxTokens {
			result.AddWarning(fmt.Sprintf("step chunk %d exceeds max_tokens (%d > %d)", len(chunks), tokens, cfg.MaxTokens))
		}
		c := newChunk(doc, docID, s.Name(), types.LevelAtomic, types.BoundaryStep,
			len(chunks), content, tokens)
		c.Metadata.ProcedureID = docID
		if cfg.IncludePrerequisites {
			c.Metadata.Concepts = extractMarkers(content, prerequisiteLine)
		}
		if cfg.IncludeOutcomes {
			if outcomes := extractMarkers(content, outcomeLine); len(outcomes) > 0 {
				c.Metadata.Summary = strings.Join(outcomes, "; ")
			}
		}
		chunks = append(chunks, c)
	}

	for _, line := range strings.Split(doc.Content, "\n") {
		if startsStep(line, delimiters) {
			sawDelims = true
			flush()
		}
		buf = append(buf, line)
	}
	flush()

	if !sawDelims {
		result.AddWarning("no step delimiters detected, emitted whole document as one chunk")
	}

	// Step order is meaningful: always chain.
	linkChain(chunks)

	result.Chunks = chunks
	result.Stats = computeStats(chunks, s.Name(), started)
	return result, nil
}

// startsStep reports whether the trimmed line begins with any configured
// delimiter prefix.
func startsStep(line string, delimiters []string) bool {
	trimmed := strings.TrimSpace(line)
	for _, d := range delimiters {
		if strings.HasPrefix(trimmed, d) {
			return true
		}
	}
	return false
}

// extractMarkers collects the captured remainder of every line matching
// the marker pattern, split on commas and semicolons.
func extractMarkers(content string, re *regexp.Regexp) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, part := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ';' }) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
