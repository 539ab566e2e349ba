package types

// ChunkingConfig is the per-strategy options bag passed to a Chunker. The
// common fields apply to every strategy; the remaining groups are read only
// by the strategy they are named for. A config must never be mutated by a
// strategy during a chunking call, which makes sharing one config across
// concurrent calls safe.
type ChunkingConfig struct {
	// Common
	MaxTokens      int  // maximum heuristic tokens per chunk
	OverlapTokens  int  // overlap budget carried between adjacent chunks
	IncludeContext bool // attach surrounding context to chunk metadata
	ContextWindow  int  // sentences (or lines) of context per side

	// Event-Boundary strategy
	Boundary        BoundaryType // pattern set used for boundary detection
	TemporalLinking bool         // set prev/next pointers in emission order

	// Semantic-Boundary strategy
	SimilarityThreshold float64 // adjacency similarity below which a boundary is declared
	MinChunkTokens      int     // suppress similarity boundaries until the buffer reaches this size

	// Preference-Signal strategy
	DecisionKeywords    []string // case-insensitive keywords marking decision points
	IncludeAlternatives bool     // parse enumerated alternatives into the concept list

	// Step-Boundary strategy
	StepDelimiters       []string // line prefixes that start a new step
	IncludePrerequisites bool     // extract "prerequisites:"/"requires:" lines
	IncludeOutcomes      bool     // extract "outcome:"/"result:" lines into the summary
}

// ValidationResult is the outcome of Chunker.Validate. Errors block
// chunking; warnings do not.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError records a validation error and marks the result invalid.
func (v *ValidationResult) AddError(msg string) {
	v.Valid = false
	v.Errors = append(v.Errors, msg)
}

// AddWarning records a non-fatal validation warning.
func (v *ValidationResult) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}
