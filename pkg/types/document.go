package types

import "time"

// Document is the unit of input to the chunking engine: one UTF-8 text
// record plus the identifying attributes the strategies stamp onto chunk
// metadata. Callers own the document; the chunker never modifies it.
type Document struct {
	ID          string
	Path        string
	Content     string
	ContentType ContentType
	SessionID   string
	Timestamp   *time.Time // source timestamp, if known
}
