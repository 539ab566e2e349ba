// Package chunker segments heterogeneous memory records into
// retrieval-sized chunks for embedding and vector search.
//
// Four strategies cover the content types found in an agent's memory
// vault, all behind one Chunker contract:
//
//   - event_boundary: task-execution logs with lifecycle markers
//     (Perception/Reasoning/Execution/Reflection headers, task markers)
//   - semantic_boundary: freeform reflective notes, split at topic shifts
//   - preference_signal: decision records, isolating choice points
//   - step_boundary: procedures with headers or numbered steps
//
// # Basic Usage
//
//	sel := chunker.NewSelector()
//	result, err := sel.ChunkDocument(doc, nil) // nil config = strategy defaults
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, c := range result.Chunks {
//	    fmt.Printf("%s seq=%d tokens=%d\n", c.ID, c.Metadata.SequenceIndex, c.Metadata.TokenCount)
//	}
//	for _, w := range result.Warnings {
//	    log.Printf("warning: %s", w)
//	}
//
// # Error model
//
// Config problems are the only thing that stops a chunking call: Validate
// is authoritative and Chunk re-checks it. Everything else - no boundaries
// found, zero decision points, empty documents - degrades to a best-effort
// result with a descriptive warning. Strategies never panic on arbitrary
// input, because vault content cannot be assumed to match any shape.
//
// # Concurrency
//
// Strategies and the Selector hold no per-call state. One Selector, one
// strategy instance, and one config may serve concurrent calls for
// different documents with no coordination.
//
// # Token counting
//
// Sizes are "heuristic tokens": character length divided by four. A real
// tokenizer can be swapped in via NewSelectorWithCounter and
// NewTiktokenCounter; every threshold keeps its meaning, just measured
// more accurately.
package chunker
