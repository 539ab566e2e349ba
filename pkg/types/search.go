package types

// SearchResult is one ranked hit from a memory search.
type SearchResult struct {
	ChunkID        string
	Rank           int
	RelevanceScore float64
	Content        string
	Context        string

	// Provenance from the chunk's metadata.
	NotePath    string
	ContentType ContentType
	MemoryLevel MemoryLevel
	Strategy    string
	SessionID   string
	Summary     string

	// Temporal chain neighbors, for walking forward or back through
	// the source document.
	PrevID string
	NextID string
}
