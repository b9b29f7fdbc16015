package kafka

import "time"

// IngestEvent asks the indexer to index one document. Fields maps schema
// field names to a value or an array of values.
type IngestEvent struct {
	DocumentID string         `json:"document_id"`
	Fields     map[string]any `json:"fields"`
}

func (IngestEvent) EventType() string { return "document.ingest" }

// IndexCompleteEvent announces a segment that searchers can now load.
type IndexCompleteEvent struct {
	Segment   string    `json:"segment"`
	Docs      uint32    `json:"docs"`
	Terms     int       `json:"terms"`
	CreatedAt time.Time `json:"created_at"`
}

func (IndexCompleteEvent) EventType() string { return "segment.complete" }
