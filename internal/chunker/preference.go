package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/memweave/memweave/pkg/types"
)

// StrategyPreferenceSignal is the strategy name for decision-point
// extraction.
const StrategyPreferenceSignal = "preference_signal"

// captureLookaheadLines is the fixed window of lines captured after a
// matching line. The matched region never overlaps the next one: scanning
// resumes immediately after the captured lines.
const captureLookaheadLines = 5

// defaultDecisionKeywords mark decision points in structured records:
// plan selections, ratings, chosen alternatives.
var defaultDecisionKeywords = []string{
	"decision", "decided", "chose", "chosen", "selected",
	"preference", "prefer", "preferred", "rating", "rated",
}

// alternativeLine matches enumerated or bulleted lines inside a captured
// region, used for alternative extraction.
var alternativeLine = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.+)$`)

// PreferenceSignalChunker isolates decision points from structured
// records. Documents with no decision content legitimately produce zero
// chunks; that is reported as a warning, not an error.
type PreferenceSignalChunker struct {
	counter TokenCounter
}

// NewPreferenceSignal creates the preference-signal strategy. A nil
// counter uses the heuristic.
func NewPreferenceSignal(tc TokenCounter) *PreferenceSignalChunker {
	return &PreferenceSignalChunker{counter: tc}
}

// Name implements Chunker.
func (p *PreferenceSignalChunker) Name() string { return StrategyPreferenceSignal }

// DefaultConfig implements Chunker.
func (p *PreferenceSignalChunker) DefaultConfig() *types.ChunkingConfig {
	keywords := make([]string, len(defaultDecisionKeywords))
	copy(keywords, defaultDecisionKeywords)
	return &types.ChunkingConfig{
		MaxTokens:           256,
		DecisionKeywords:    keywords,
		IncludeAlternatives: true,
	}
}

// Validate implements Chunker. An empty keyword list is allowed and falls
// back to the built-in defaults.
func (p *PreferenceSignalChunker) Validate(cfg *types.ChunkingConfig) *types.ValidationResult {
	vr := &types.ValidationResult{Valid: true}
	if cfg == nil {
		vr.AddError("config is required")
		return vr
	}
	validateCommon(cfg, vr)

	for _, kw := range cfg.DecisionKeywords {
		if strings.TrimSpace(kw) == "" {
			vr.AddError("decision_keywords must not contain empty entries")
			break
		}
	}
	if len(cfg.DecisionKeywords) == 0 {
		vr.AddWarning("decision_keywords empty, using built-in defaults")
	}
	return vr
}

// Chunk implements Chunker. Lines are scanned for case-insensitive
// keyword matches; each match captures the matching line plus a fixed
// lookahead window as one chunk, then scanning resumes after the captured
// region.
func (p *PreferenceSignalChunker) Chunk(doc *types.Document, cfg *types.ChunkingConfig) (*types.ChunkingResult, error) {
	if err := precheck(p, doc, cfg); err != nil {
		return nil, err
	}
	started := time.Now()
	result := &types.ChunkingResult{}
	docID := documentID(doc)

	keywords := cfg.DecisionKeywords
	if len(keywords) == 0 {
		keywords = defaultDecisionKeywords
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}

	lines := strings.Split(doc.Content, "\n")
	var chunks []*types.Chunk

	for i := 0; i < len(lines); {
		if !matchesKeyword(lines[i], lowered) {
			i++
			continue
		}

		end := i + 1 + captureLookaheadLines
		if end > len(lines) {
			end = len(lines)
		}
		region := lines[i:end]
		content := strings.TrimSpace(strings.Join(region, "\n"))
		if content == "" {
			i = end
			continue
		}

		tokens := countTokens(p.counter, content)
		if tokens > cfg.MaxTokens {
			result.AddWarning(fmt.Sprintf("decision chunk %d exceeds max_tokens (%d > %d)", len(chunks), tokens, cfg.MaxTokens))
		}

		c := newChunk(doc, docID, p.Name(), types.LevelStrategic, types.BoundaryDecision,
			len(chunks), content, tokens)
		if cfg.IncludeAlternatives {
			c.Metadata.Concepts = extractAlternatives(region)
		}
		chunks = append(chunks, c)

		i = end
	}

	if len(chunks) == 0 {
		result.AddWarning("no decision keywords matched, document contains no preference signals")
	}

	result.Chunks = chunks
	result.Stats = computeStats(chunks, p.Name(), started)
	return result, nil
}

// matchesKeyword reports whether the line contains any keyword,
// case-insensitively.
func matchesKeyword(line string, loweredKeywords []string) bool {
	l := strings.ToLower(line)
	for _, kw := range loweredKeywords {
		if strings.Contains(l, kw) {
			return true
		}
	}
	return false
}

// extractAlternatives parses enumerated/bulleted lines inside a captured
// region into a concept list.
func extractAlternatives(region []string) []string {
	var alts []string
	for _, line := range region {
		if m := alternativeLine.FindStringSubmatch(line); m != nil {
			alts = append(alts, strings.TrimSpace(m[1]))
		}
	}
	return alts
}
