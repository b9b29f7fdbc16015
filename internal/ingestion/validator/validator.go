// Package validator checks ingestion requests against the index schema and
// reports every offending field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
)

const (
	maxDocumentIDLength = 255
	maxTextLength       = 1048576
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%s", name, e.Fields[name]))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks the request against s and returns the parsed
// document, or a *ValidationError.
func ValidateIngestRequest(s *schema.Schema, req *ingestion.IngestRequest) (schema.Document, error) {
	errs := make(map[string]string)
	if len(req.DocumentID) > maxDocumentIDLength {
		errs["document_id"] = fmt.Sprintf("document id must be at most %d characters", maxDocumentIDLength)
	}
	if len(req.Fields) == 0 {
		errs["fields"] = "at least one field is required"
	}
	for name, value := range req.Fields {
		if _, err := s.ParseDocument(map[string]any{name: value}); err != nil {
			errs[name] = err.Error()
			continue
		}
		if text, ok := value.(string); ok && len(text) > maxTextLength {
			errs[name] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
		}
	}
	if len(errs) > 0 {
		return schema.Document{}, &ValidationError{Fields: errs}
	}
	return s.ParseDocument(req.Fields)
}
