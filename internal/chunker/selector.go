package chunker

import (
	"fmt"
	"sort"

	"github.com/memweave/memweave/pkg/types"
)

// Selector maps content types to chunking strategies. The registry is
// built once at construction and never mutated afterward, so a Selector
// is safe for concurrent use. Callers inject a Selector rather than
// reaching for a global, which lets tests substitute alternate registries.
type Selector struct {
	registry map[types.ContentType]Chunker
	fallback Chunker
}

// NewSelector builds the default registry with heuristic token counting:
//
//	episodic, working      -> event-boundary
//	semantic, generic_doc  -> semantic-boundary
//	preference             -> preference-signal
//	procedural             -> step-boundary
//
// Unknown content types resolve to the semantic-boundary strategy, which
// produces a usable segmentation for any prose.
func NewSelector() *Selector {
	return NewSelectorWithCounter(HeuristicCounter{})
}

// NewSelectorWithCounter builds the default registry with every strategy
// sharing the given token counter.
func NewSelectorWithCounter(tc TokenCounter) *Selector {
	event := NewEventBoundary(tc)
	semantic := NewSemanticBoundary(tc)
	preference := NewPreferenceSignal(tc)
	step := NewStepBoundary(tc)

	return &Selector{
		registry: map[types.ContentType]Chunker{
			types.ContentEpisodic:   event,
			types.ContentWorking:    event,
			types.ContentSemantic:   semantic,
			types.ContentDocument:   semantic,
			types.ContentPreference: preference,
			types.ContentProcedural: step,
		},
		fallback: semantic,
	}
}

// NewSelectorWithRegistry builds a selector over an explicit registry.
// The map is copied; later mutation of the argument has no effect.
func NewSelectorWithRegistry(registry map[types.ContentType]Chunker, fallback Chunker) *Selector {
	copied := make(map[types.ContentType]Chunker, len(registry))
	for ct, c := range registry {
		copied[ct] = c
	}
	return &Selector{registry: copied, fallback: fallback}
}

// Select returns the strategy registered for the content type. The second
// return is false when the content type is unknown or unregistered and the
// fallback strategy was returned instead.
func (s *Selector) Select(contentType types.ContentType) (Chunker, bool) {
	if c, ok := s.registry[contentType]; ok {
		return c, true
	}
	return s.fallback, false
}

// Strategies returns the registered content types and their strategy
// names, sorted by content type for stable output.
func (s *Selector) Strategies() map[types.ContentType]string {
	out := make(map[types.ContentType]string, len(s.registry))
	for ct, c := range s.registry {
		out[ct] = c.Name()
	}
	return out
}

// ContentTypes returns the registered content types in sorted order.
func (s *Selector) ContentTypes() []types.ContentType {
	out := make([]types.ContentType, 0, len(s.registry))
	for ct := range s.registry {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ChunkDocument is the single entry surface for callers: select the
// strategy for the document's content type, validate the config, chunk,
// and surface a fallback warning when the content type was unknown. A nil
// config uses the selected strategy's defaults.
func (s *Selector) ChunkDocument(doc *types.Document, cfg *types.ChunkingConfig) (*types.ChunkingResult, error) {
	if doc == nil {
		return nil, types.ErrNilDocument
	}

	strategy, known := s.Select(doc.ContentType)
	if cfg == nil {
		cfg = strategy.DefaultConfig()
	}

	result, err := strategy.Chunk(doc, cfg)
	if err != nil {
		return nil, err
	}
	if !known {
		result.AddWarning(fmt.Sprintf("no strategy registered for content type %q, fell back to %s",
			doc.ContentType, strategy.Name()))
	}
	return result, nil
}
