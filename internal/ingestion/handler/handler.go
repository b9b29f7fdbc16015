package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/logger"
)

const (
	maxBatchSize = 1000
	maxBodyBytes = 32 << 20
)

type Handler struct {
	schema    *schema.Schema
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func New(s *schema.Schema, pub *publisher.Publisher) *Handler {
	return &Handler{
		schema:    s,
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
	mux.HandleFunc("POST /api/v1/documents/batch", h.IngestBatch)
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestion.IngestRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := validator.ValidateIngestRequest(h.schema, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}
	resp, err := h.publisher.Ingest(r.Context(), &req)
	if err != nil {
		h.writePublishError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("document accepted", "doc_id", resp.DocumentID)
	h.writeJSON(w, http.StatusAccepted, resp)
}

// IngestBatch accepts a JSON array of documents. The batch is rejected as a
// whole when any document is invalid.
func (h *Handler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []ingestion.IngestRequest
	if !h.decode(w, r, &reqs) {
		return
	}
	if len(reqs) == 0 || len(reqs) > maxBatchSize {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("batch must hold between 1 and %d documents", maxBatchSize))
		return
	}
	for i := range reqs {
		if _, err := validator.ValidateIngestRequest(h.schema, &reqs[i]); err != nil {
			var validationErr *validator.ValidationError
			if errors.As(err, &validationErr) {
				h.writeJSON(w, http.StatusBadRequest, map[string]any{
					"error":  "validation failed",
					"index":  i,
					"fields": validationErr.Fields,
				})
				return
			}
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	resps, err := h.publisher.IngestBatch(r.Context(), reqs)
	if err != nil {
		h.writePublishError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("batch accepted", "documents", len(resps))
	h.writeJSON(w, http.StatusAccepted, map[string]any{"accepted": resps})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writePublishError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := apperrors.HTTPStatusCode(err)
	logger.FromContext(r.Context()).Error("ingestion failed",
		"error", err,
		"status_code", statusCode,
	)
	h.writeError(w, statusCode, "ingestion failed")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
