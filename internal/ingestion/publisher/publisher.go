// Package publisher assigns document ids, records documents as pending and
// publishes ingest events to Kafka for the indexer.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/resilience"
)

// StatusStore records document statuses. *postgres.Client implements it.
type StatusStore interface {
	SetStatus(ctx context.Context, docID, status string) error
}

// EventWriter publishes events one at a time or in batches.
// *kafka.Producer implements it.
type EventWriter interface {
	kafka.Publisher
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	store    StatusStore
	producer EventWriter
	retry    resilience.RetryConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Publisher. store and m may be nil.
func New(store StatusStore, producer EventWriter, retry resilience.RetryConfig, m *metrics.Metrics) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		retry:    retry,
		metrics:  m,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest publishes one validated request.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	resps, err := p.IngestBatch(ctx, []ingestion.IngestRequest{*req})
	if err != nil {
		return nil, err
	}
	return &resps[0], nil
}

// IngestBatch publishes validated requests in a single Kafka write. Each
// document is recorded as PENDING before it is published and as FAILED when
// publishing fails for good.
func (p *Publisher) IngestBatch(ctx context.Context, reqs []ingestion.IngestRequest) ([]ingestion.IngestResponse, error) {
	events := make([]kafka.Event, 0, len(reqs))
	resps := make([]ingestion.IngestResponse, 0, len(reqs))
	for _, req := range reqs {
		docID := req.DocumentID
		if docID == "" {
			docID = uuid.NewString()
		}
		if err := p.setStatus(ctx, docID, postgres.StatusPending); err != nil {
			return nil, fmt.Errorf("recording document %s: %w", docID, err)
		}
		events = append(events, kafka.Event{
			Key:   docID,
			Value: kafka.IngestEvent{DocumentID: docID, Fields: req.Fields},
		})
		resps = append(resps, ingestion.IngestResponse{DocumentID: docID, Status: postgres.StatusPending})
	}

	err := resilience.Retry(ctx, "publish ingest events", p.retry, func() error {
		if len(events) == 1 {
			return p.producer.Publish(ctx, events[0])
		}
		return p.producer.PublishBatch(ctx, events)
	})
	if err != nil {
		p.logger.Error("failed to publish to kafka", "documents", len(events), "error", err)
		p.count("failed", len(events))
		for _, r := range resps {
			if serr := p.setStatus(ctx, r.DocumentID, postgres.StatusFailed); serr != nil {
				p.logger.Error("failed to record publish failure", "doc_id", r.DocumentID, "error", serr)
			}
		}
		return nil, apperrors.Newf(apperrors.ErrInternal, http.StatusServiceUnavailable, "publishing %d documents: %v", len(events), err)
	}
	p.count("accepted", len(events))
	return resps, nil
}

func (p *Publisher) count(outcome string, n int) {
	if p.metrics != nil {
		p.metrics.DocsIngestedTotal.WithLabelValues(outcome).Add(float64(n))
	}
}

func (p *Publisher) setStatus(ctx context.Context, docID, status string) error {
	if p.store == nil {
		return nil
	}
	return p.store.SetStatus(ctx, docID, status)
}
