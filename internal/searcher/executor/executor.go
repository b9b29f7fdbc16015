// Package executor runs a query over every segment of the index. Each
// segment gets its own segment collector, segments are scanned concurrently
// and the per-segment fruits are merged once all of them are harvested.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/collector"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
)

// Stats describes one execution.
type Stats struct {
	Segments int
	Matched  int
}

type Executor struct {
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates an Executor scanning at most concurrency segments at once.
// m may be nil.
func New(concurrency int, m *metrics.Metrics) *Executor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Executor{
		concurrency: concurrency,
		metrics:     m,
		logger:      slog.Default().With("component", "query-executor"),
	}
}

// Search feeds the matches of q in segments[i] to the segment collector
// created for ordinal i and merges the harvested fruits. The first error
// from any segment cancels the others and is returned.
func Search[F any](ctx context.Context, e *Executor, segments []*segment.Reader, q *query.Query, c collector.Collector[F]) (F, Stats, error) {
	var zero F
	fruits := make([]F, len(segments))
	var matched atomic.Int64
	scoring := c.RequiresScoring()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			sc, err := c.ForSegment(collector.SegmentOrdinal(i), seg)
			if err != nil {
				return fmt.Errorf("segment %s: %w", seg.Name(), err)
			}
			n, err := q.Scan(seg, scoring, sc.Collect)
			if err != nil {
				return fmt.Errorf("segment %s: %w", seg.Name(), err)
			}
			fruits[i] = sc.Harvest()
			matched.Add(int64(n))
			e.observeSegment(n, time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zero, Stats{}, err
	}

	mergeStart := time.Now()
	merged, err := c.MergeFruits(fruits)
	if err != nil {
		return zero, Stats{}, fmt.Errorf("merging segment results: %w", err)
	}
	if e.metrics != nil {
		e.metrics.MergeDuration.Observe(time.Since(mergeStart).Seconds())
	}

	stats := Stats{Segments: len(segments), Matched: int(matched.Load())}
	e.logger.Debug("segments collected",
		"query", q.Plan().RawQuery,
		"segments", stats.Segments,
		"matched", stats.Matched,
	)
	return merged, stats, nil
}

func (e *Executor) observeSegment(matched int, took time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.SegmentsCollectedTotal.Inc()
	e.metrics.DocsCollectedTotal.Add(float64(matched))
	e.metrics.SegmentCollectDuration.Observe(took.Seconds())
}
