package chunker

import (
	"fmt"
	"strings"
	"time"

	"github.com/memweave/memweave/pkg/types"
)

// StrategySemanticBoundary is the strategy name for topic-shift chunking.
const StrategySemanticBoundary = "semantic_boundary"

// minSemanticMaxTokens is the floor for the semantic strategy's max chunk
// size. A chunk smaller than this is too fragmented to be independently
// useful to retrieval.
const minSemanticMaxTokens = 128

// SimilarityFunc scores the adjacency of two sentences in [0,1]. The
// default is lexical overlap; an embedding-backed cosine measure can be
// substituted without changing call sites.
type SimilarityFunc func(a, b string) float64

// LexicalOverlap computes the Jaccard ratio (intersection over union) of
// the two sentences' lowercased word sets.
func LexicalOverlap(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, `.,;:!?"'()[]{}`)
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// SemanticBoundaryChunker segments freeform reflective text at topic
// shifts, detected as low adjacency similarity between consecutive
// sentences.
type SemanticBoundaryChunker struct {
	counter    TokenCounter
	similarity SimilarityFunc
}

// NewSemanticBoundary creates the semantic-boundary strategy with the
// lexical-overlap similarity measure. A nil counter uses the heuristic.
func NewSemanticBoundary(tc TokenCounter) *SemanticBoundaryChunker {
	return &SemanticBoundaryChunker{counter: tc, similarity: LexicalOverlap}
}

// NewSemanticBoundaryWithSimilarity creates the strategy with a custom
// similarity measure, e.g. an embedding-backed cosine.
func NewSemanticBoundaryWithSimilarity(tc TokenCounter, fn SimilarityFunc) *SemanticBoundaryChunker {
	if fn == nil {
		fn = LexicalOverlap
	}
	return &SemanticBoundaryChunker{counter: tc, similarity: fn}
}

// Name implements Chunker.
func (s *SemanticBoundaryChunker) Name() string { return StrategySemanticBoundary }

// DefaultConfig implements Chunker.
func (s *SemanticBoundaryChunker) DefaultConfig() *types.ChunkingConfig {
	return &types.ChunkingConfig{
		MaxTokens:           512,
		OverlapTokens:       0,
		IncludeContext:      true,
		ContextWindow:       2,
		SimilarityThreshold: 0.3,
		MinChunkTokens:      0,
	}
}

// Validate implements Chunker. The similarity threshold must lie in
// [0,1] and the max chunk size must be at least minSemanticMaxTokens.
func (s *SemanticBoundaryChunker) Validate(cfg *types.ChunkingConfig) *types.ValidationResult {
	vr := &types.ValidationResult{Valid: true}
	if cfg == nil {
		vr.AddError("config is required")
		return vr
	}
	validateCommon(cfg, vr)

	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		vr.AddError(fmt.Sprintf("similarity_threshold %.2f outside [0,1]", cfg.SimilarityThreshold))
	}
	if cfg.MaxTokens > 0 && cfg.MaxTokens < minSemanticMaxTokens {
		vr.AddError(fmt.Sprintf("max_tokens %d below minimum %d, chunks would be too fragmented", cfg.MaxTokens, minSemanticMaxTokens))
	}
	if cfg.MinChunkTokens < 0 {
		vr.AddError("min_chunk_tokens cannot be negative")
	}
	if cfg.MinChunkTokens >= cfg.MaxTokens && cfg.MaxTokens > 0 {
		vr.AddWarning("min_chunk_tokens >= max_tokens, similarity boundaries will never fire")
	}
	return vr
}

// sentenceRange records which sentences a chunk covers, for context
// capture after all boundaries are known.
type sentenceRange struct {
	start, end int // [start, end)
}

// Chunk implements Chunker. Sentences accumulate into a buffer; the
// buffer flushes into a chunk when the adjacency similarity between the
// two most recent sentences drops below the threshold or the buffer
// reaches the max token size, whichever comes first. The remaining buffer
// flushes at document end.
func (s *SemanticBoundaryChunker) Chunk(doc *types.Document, cfg *types.ChunkingConfig) (*types.ChunkingResult, error) {
	if err := precheck(s, doc, cfg); err != nil {
		return nil, err
	}
	started := time.Now()
	result := &types.ChunkingResult{}
	docID := documentID(doc)

	sentences := splitSentences(doc.Content)
	if len(sentences) == 0 {
		result.AddWarning("document is empty, no chunks produced")
		result.Stats = computeStats(nil, s.Name(), started)
		return result, nil
	}

	var (
		chunks    []*types.Chunk
		ranges    []sentenceRange
		buf       []string
		bufStart  int
		bufTokens int
		overlap   int // overlap tokens carried into the current buffer
	)

	flush := func(end int, confidence float64) {
		content := strings.TrimSpace(strings.Join(buf, " "))
		if content == "" {
			buf = buf[:0]
			bufTokens = 0
			bufStart = end
			overlap = 0
			return
		}
		// The buffer sum is the size the flush decision was made on;
		// recounting the joined string would also bill the joiner spaces.
		c := newChunk(doc, docID, s.Name(), types.LevelSemantic, types.BoundarySemantic,
			len(chunks), content, bufTokens)
		c.Metadata.OverlapTokens = overlap
		c.Metadata.Confidence = confidence
		chunks = append(chunks, c)
		ranges = append(ranges, sentenceRange{start: bufStart, end: end})

		// Seed the next buffer with trailing sentences up to the overlap
		// budget so adjacent chunks share context.
		buf, bufTokens, overlap = carryOverlap(buf, cfg.OverlapTokens, s.counter)
		bufStart = end
	}

	for i, sent := range sentences {
		sentTokens := countTokens(s.counter, sent)

		if len(buf) > 0 {
			sim := s.similarity(buf[len(buf)-1], sent)
			if sim < cfg.SimilarityThreshold && bufTokens >= cfg.MinChunkTokens {
				flush(i, 1-sim)
			} else if bufTokens+sentTokens > cfg.MaxTokens {
				flush(i, 0)
			}
		}

		buf = append(buf, sent)
		bufTokens += sentTokens
	}
	flush(len(sentences), 0)

	if cfg.IncludeContext && cfg.ContextWindow > 0 {
		attachSentenceContext(chunks, ranges, sentences, cfg.ContextWindow)
	}
	if cfg.TemporalLinking {
		linkChain(chunks)
	}
	if len(chunks) == 1 {
		result.AddWarning("no semantic boundaries detected, emitted whole document as one chunk")
	}

	result.Chunks = chunks
	result.Stats = computeStats(chunks, s.Name(), started)
	return result, nil
}

// carryOverlap returns the trailing sentences of the flushed buffer that
// fit within the overlap budget, along with their token count.
func carryOverlap(buf []string, overlapTokens int, counter TokenCounter) (next []string, tokens, carried int) {
	if overlapTokens <= 0 || len(buf) == 0 {
		return nil, 0, 0
	}
	for i := len(buf) - 1; i >= 0; i-- {
		t := countTokens(counter, buf[i])
		if tokens+t > overlapTokens {
			break
		}
		next = append([]string{buf[i]}, next...)
		tokens += t
	}
	return next, tokens, tokens
}

// attachSentenceContext fills ContextBefore/ContextAfter with up to
// window sentences on each side of the chunk's sentence range.
func attachSentenceContext(chunks []*types.Chunk, ranges []sentenceRange, sentences []string, window int) {
	for i, c := range chunks {
		r := ranges[i]
		before := r.start - window
		if before < 0 {
			before = 0
		}
		if before < r.start {
			c.Metadata.ContextBefore = strings.Join(sentences[before:r.start], " ")
		}
		after := r.end + window
		if after > len(sentences) {
			after = len(sentences)
		}
		if r.end < after {
			c.Metadata.ContextAfter = strings.Join(sentences[r.end:after], " ")
		}
	}
}

// splitSentences splits text on sentence-terminal punctuation. A
// terminator ends a sentence only when followed by whitespace or end of
// text; blank lines also terminate, so list items and headings without
// punctuation still become units.
func splitSentences(text string) []string {
	var (
		sentences []string
		b         strings.Builder
	)
	emit := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)

		switch r {
		case '.', '!', '?':
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' || runes[i+1] == '\r' {
				emit()
			}
		case '\n':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				emit()
			}
		}
	}
	emit()
	return sentences
}
