// Package ingestion accepts documents over HTTP, checks them against the
// index schema and publishes them to Kafka for the indexer.
package ingestion

// IngestRequest is the JSON body accepted by the ingestion endpoints. Fields
// maps schema field names to a value or an array of values. A missing
// DocumentID is generated.
type IngestRequest struct {
	DocumentID string         `json:"document_id,omitempty"`
	Fields     map[string]any `json:"fields"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}
