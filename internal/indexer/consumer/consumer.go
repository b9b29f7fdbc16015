// Package consumer reads ingest events from Kafka and indexes them via the
// indexer engine. Document statuses are tracked in PostgreSQL when a status
// store is configured, and every flushed segment is announced on the
// index-complete topic.
package consumer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/postgres"
)

// Indexer is the part of indexer.Engine used by the handler.
type Indexer interface {
	IndexDocument(doc schema.Document) error
	Schema() *schema.Schema
}

// StatusStore records document statuses. *postgres.Client implements it.
type StatusStore interface {
	SetStatus(ctx context.Context, docID, status string) error
	MarkSegment(ctx context.Context, segment string, docIDs []string) error
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// Handler indexes ingest events. store may be nil.
type Handler struct {
	engine  Indexer
	store   StatusStore
	mu      sync.Mutex
	pending []string
	logger  *slog.Logger
}

func NewHandler(engine Indexer, store StatusStore) *Handler {
	return &Handler{
		engine: engine,
		store:  store,
		logger: slog.Default().With("component", "index-consumer"),
	}
}

// HandleMessage is a kafka.MessageHandler. Undecodable events and documents
// that do not match the schema are logged and dropped so they do not block
// the partition; any other indexing error is returned so the message is
// retried.
func (h *Handler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[kafka.IngestEvent](value)
	if err != nil {
		h.logger.Error("failed to decode ingest event",
			"error", err,
			"key", string(key),
		)
		return nil
	}
	doc, err := h.engine.Schema().ParseDocument(event.Fields)
	if err != nil {
		h.logger.Warn("rejecting document",
			"doc_id", event.DocumentID,
			"error", err,
		)
		h.setStatus(ctx, event.DocumentID, postgres.StatusFailed)
		return nil
	}

	h.track(event.DocumentID)
	if err := h.engine.IndexDocument(doc); err != nil {
		h.untrack(event.DocumentID)
		h.setStatus(ctx, event.DocumentID, postgres.StatusFailed)
		return err
	}
	h.setStatus(ctx, event.DocumentID, postgres.StatusIndexed)

	h.logger.Debug("document indexed", "doc_id", event.DocumentID)
	return nil
}

func (h *Handler) track(docID string) {
	if h.store == nil {
		return
	}
	h.mu.Lock()
	h.pending = append(h.pending, docID)
	h.mu.Unlock()
}

func (h *Handler) untrack(docID string) {
	if h.store == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.pending) - 1; i >= 0; i-- {
		if h.pending[i] == docID {
			h.pending = append(h.pending[:i], h.pending[i+1:]...)
			return
		}
	}
}

func (h *Handler) setStatus(ctx context.Context, docID, status string) {
	if h.store == nil {
		return
	}
	if err := h.store.SetStatus(ctx, docID, status); err != nil {
		h.logger.Error("failed to update document status",
			"doc_id", docID,
			"status", status,
			"error", err,
		)
	}
}

// FlushHook returns an indexer.Engine flush callback that records which
// documents went into the new segment and announces the segment through
// publisher. publisher may be nil.
func (h *Handler) FlushHook(ctx context.Context, publisher kafka.Publisher) func(indexer.FlushInfo) {
	return func(info indexer.FlushInfo) {
		if h.store != nil {
			h.mu.Lock()
			docIDs := h.pending
			h.pending = nil
			h.mu.Unlock()
			if err := h.store.MarkSegment(ctx, info.Segment, docIDs); err != nil {
				h.logger.Error("failed to record segment membership",
					"segment", info.Segment,
					"docs", len(docIDs),
					"error", err,
				)
			}
		}
		if publisher == nil {
			return
		}
		event := kafka.Event{
			Key: info.Segment,
			Value: kafka.IndexCompleteEvent{
				Segment:   info.Segment,
				Docs:      info.Docs,
				Terms:     info.Terms,
				CreatedAt: time.Now().UTC(),
			},
		}
		if err := publisher.Publish(ctx, event); err != nil {
			h.logger.Error("failed to announce segment", "segment", info.Segment, "error", err)
		}
	}
}
