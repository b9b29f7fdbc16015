package executor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/collector"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
)

// SegmentSource provides the segments to search. *indexer.Engine implements
// it.
type SegmentSource interface {
	Segments() []*segment.Reader
	Schema() *schema.Schema
}

// Request is one search. An empty OrderBy ranks by relevance.
type Request struct {
	Query   string
	Limit   int
	OrderBy string
}

type Hit struct {
	// Key is the BM25 score, or the fast field value when ordering by field.
	Key      any                       `json:"key"`
	Segment  string                    `json:"segment"`
	Doc      uint32                    `json:"doc"`
	Document schema.NamedFieldDocument `json:"document"`
}

type SearchResult struct {
	Query     string         `json:"query"`
	OrderBy   string         `json:"order_by,omitempty"`
	TotalHits int            `json:"total_hits"`
	Hits      []Hit          `json:"hits"`
	TermStats map[string]int `json:"term_stats"`
}

type Service struct {
	source  SegmentSource
	exec    *Executor
	cfg     config.SearchConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates a search service over source. m may be nil.
func NewService(source SegmentSource, cfg config.SearchConfig, m *metrics.Metrics) *Service {
	return &Service{
		source:  source,
		exec:    New(cfg.SegmentConcurrency, m),
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "search-service"),
	}
}

// Search runs req and returns its top hits with their stored documents.
func (s *Service) Search(ctx context.Context, req Request) (*SearchResult, error) {
	start := time.Now()
	result, err := s.search(ctx, req)

	order := req.OrderBy
	if order == "" {
		order = "score"
	}
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues(outcome(err)).Inc()
		if err == nil {
			s.metrics.SearchLatency.WithLabelValues(order).Observe(time.Since(start).Seconds())
			s.metrics.SearchResultsCount.Observe(float64(len(result.Hits)))
		}
	}
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("query executed",
		"query", req.Query,
		"order", order,
		"total_hits", result.TotalHits,
		"returned", len(result.Hits),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.Kind(err)
}

func (s *Service) search(ctx context.Context, req Request) (*SearchResult, error) {
	if s.cfg.MaxResults > 0 && req.Limit > s.cfg.MaxResults {
		return nil, apperrors.InvalidInputf("limit %d exceeds the maximum of %d", req.Limit, s.cfg.MaxResults)
	}
	td, err := collector.NewTopDocs(req.Limit)
	if err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	segments := s.source.Segments()
	plan := parser.Parse(req.Query)
	q := query.New(plan, segments)

	var hits []Hit
	var stats Stats
	if req.OrderBy == "" {
		hits, stats, err = collect[collector.Score](ctx, s, segments, q, td)
	} else {
		hits, stats, err = s.orderByField(ctx, segments, q, td, req.OrderBy)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return nil, err
	}
	return &SearchResult{
		Query:     req.Query,
		OrderBy:   req.OrderBy,
		TotalHits: stats.Matched,
		Hits:      hits,
		TermStats: q.DocFreqs(),
	}, nil
}

func (s *Service) orderByField(ctx context.Context, segments []*segment.Reader, q *query.Query, td *collector.TopDocs, name string) ([]Hit, Stats, error) {
	field, entry, err := collector.ResolveFastField(s.source.Schema(), name)
	if err != nil {
		return nil, Stats{}, err
	}
	switch entry.Type {
	case schema.U64:
		return collect[uint64](ctx, s, segments, q, collector.OrderByField[uint64](td, field))
	case schema.I64:
		return collect[int64](ctx, s, segments, q, collector.OrderByField[int64](td, field))
	case schema.F64:
		return collect[float64](ctx, s, segments, q, collector.OrderByField[float64](td, field))
	default:
		return nil, Stats{}, apperrors.Schemaf("field %q of type %s cannot be used for ordering", name, entry.Type)
	}
}

func collect[T cmp.Ordered](ctx context.Context, s *Service, segments []*segment.Reader, q *query.Query, c collector.Collector[[]collector.RankedDoc[T]]) ([]Hit, Stats, error) {
	docs, stats, err := Search(ctx, s.exec, segments, q, c)
	if err != nil {
		return nil, Stats{}, err
	}
	sch := s.source.Schema()
	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		seg := segments[d.Address.Segment]
		stored, err := seg.Doc(d.Address.Doc)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("loading document %d of segment %s: %w", d.Address.Doc, seg.Name(), err)
		}
		hits = append(hits, Hit{
			Key:      jsonKey(d.Key),
			Segment:  seg.Name(),
			Doc:      d.Address.Doc,
			Document: sch.ToNamedDoc(stored),
		})
	}
	return hits, stats, nil
}

// NaN has no JSON representation.
func jsonKey[T cmp.Ordered](k T) any {
	if k != k {
		return nil
	}
	return k
}
