package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/collector"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
)

type beerFields struct {
	title, size, gravity, abv schema.Field
}

func beerSchema() (*schema.Schema, beerFields) {
	b := schema.NewBuilder()
	f := beerFields{
		title:   b.AddTextField("title", schema.TEXT|schema.STORED),
		size:    b.AddU64Field("size", schema.FAST|schema.STORED),
		gravity: b.AddI64Field("gravity", schema.FAST),
		abv:     b.AddF64Field("abv", schema.STORED),
	}
	return b.MustBuild(), f
}

type beer struct {
	title   string
	size    uint64
	gravity int64
}

// newIndex writes each batch as its own segment.
func newIndex(t *testing.T, batches ...[]beer) *indexer.Engine {
	t.Helper()
	s, f := beerSchema()
	e, err := indexer.NewEngine(config.IndexerConfig{
		DataDir:        t.TempDir(),
		SegmentMaxDocs: 1 << 20,
		FlushInterval:  time.Hour,
	}, s, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	for _, batch := range batches {
		for _, b := range batch {
			var d schema.Document
			d.AddText(f.title, b.title)
			d.AddU64(f.size, b.size)
			d.AddI64(f.gravity, b.gravity)
			d.AddF64(f.abv, 5.2)
			require.NoError(t, e.IndexDocument(d))
		}
		require.NoError(t, e.Flush())
	}
	return e
}

func newService(e *indexer.Engine) (*Service, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewService(e, config.SearchConfig{
		DefaultLimit:       10,
		MaxResults:         100,
		SegmentConcurrency: 2,
		Timeout:            5 * time.Second,
	}, m), m
}

func titles(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Document["title"][0].Str)
	}
	return out
}

func TestOrderByField(t *testing.T) {
	e := newIndex(t, []beer{
		{"pint of beer", 12, 0},
		{"growler of beer", 64, 0},
		{"bottle of beer", 16, 0},
	})
	svc, _ := newService(e)

	res, err := svc.Search(context.Background(), Request{Query: "beer", Limit: 4, OrderBy: "size"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, []any{uint64(64), uint64(16), uint64(12)}, []any{res.Hits[0].Key, res.Hits[1].Key, res.Hits[2].Key})
	assert.Equal(t, []uint32{1, 2, 0}, []uint32{res.Hits[0].Doc, res.Hits[1].Doc, res.Hits[2].Doc})
	assert.Equal(t, []string{"growler of beer", "bottle of beer", "pint of beer"}, titles(res.Hits))
	assert.Equal(t, 3, res.TotalHits)
	assert.Equal(t, "size", res.OrderBy)
}

func TestOrderBySignedField(t *testing.T) {
	e := newIndex(t, []beer{
		{"beer", 0, -5},
		{"beer", 0, 3},
		{"beer", 0, -40},
	})
	svc, _ := newService(e)

	res, err := svc.Search(context.Background(), Request{Query: "beer", Limit: 3, OrderBy: "gravity"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, []any{int64(3), int64(-5), int64(-40)}, []any{res.Hits[0].Key, res.Hits[1].Key, res.Hits[2].Key})
	// gravity is not stored
	assert.NotContains(t, res.Hits[0].Document, "gravity")
}

func TestOrderByFieldTiesAcrossSegments(t *testing.T) {
	e := newIndex(t,
		[]beer{{"beer one", 12, 0}, {"beer two", 64, 0}},
		[]beer{{"beer three", 64, 0}, {"beer four", 16, 0}},
	)
	svc, _ := newService(e)
	segments := e.Segments()
	require.Len(t, segments, 2)

	res, err := svc.Search(context.Background(), Request{Query: "beer", Limit: 3, OrderBy: "size"})
	require.NoError(t, err)
	assert.Equal(t, []string{"beer two", "beer three", "beer four"}, titles(res.Hits))
	assert.Equal(t, segments[0].Name(), res.Hits[0].Segment)
	assert.Equal(t, segments[1].Name(), res.Hits[1].Segment)
}

func TestOrderByFieldRejectsBadField(t *testing.T) {
	e := newIndex(t, []beer{{"beer", 1, 1}})
	svc, m := newService(e)

	for _, field := range []string{"title", "abv", "colour"} {
		t.Run(field, func(t *testing.T) {
			_, err := svc.Search(context.Background(), Request{Query: "beer", Limit: 4, OrderBy: field})
			assert.ErrorIs(t, err, apperrors.ErrSchema)
		})
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("schema")))
	assert.Zero(t, testutil.ToFloat64(m.DocsCollectedTotal))
}

func TestLimitValidation(t *testing.T) {
	e := newIndex(t, []beer{{"beer", 1, 1}})
	svc, _ := newService(e)

	_, err := svc.Search(context.Background(), Request{Query: "beer", Limit: 0})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = svc.Search(context.Background(), Request{Query: "beer", Limit: 101})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRelevance(t *testing.T) {
	e := newIndex(t, []beer{
		{"pale ale", 1, 0},
		{"stout", 2, 0},
		{"pale ale with more ale in it than any ale before", 3, 0},
		{"ale", 4, 0},
	})
	svc, m := newService(e)

	res, err := svc.Search(context.Background(), Request{Query: "ale", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalHits)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "ale", titles(res.Hits)[0])
	first, ok := res.Hits[0].Key.(collector.Score)
	require.True(t, ok)
	second := res.Hits[1].Key.(collector.Score)
	assert.Greater(t, first, second)
	assert.Equal(t, map[string]int{"ale": 3}, res.TermStats)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SegmentsCollectedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocsCollectedTotal))
}

func TestEmptyQueryMatchesNothing(t *testing.T) {
	e := newIndex(t, []beer{{"beer", 1, 1}})
	svc, _ := newService(e)

	res, err := svc.Search(context.Background(), Request{Query: "NOT beer", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.NotNil(t, res.Hits)
	assert.Zero(t, res.TotalHits)
}

func TestSegmentationDoesNotChangeRanking(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"pale", "ale", "stout", "porter", "lager", "bitter", "amber", "wheat"}
	docs := make([]beer, 60)
	for i := range docs {
		n := 1 + rng.Intn(6)
		title := ""
		for j := 0; j < n; j++ {
			title += words[rng.Intn(len(words))] + " "
		}
		docs[i] = beer{title: fmt.Sprintf("%s%d", title, i), size: uint64(rng.Intn(20))}
	}

	single, _ := newService(newIndex(t, docs))
	split, _ := newService(newIndex(t, docs[:13], docs[13:31], docs[31:]))

	for _, req := range []Request{
		{Query: "ale OR stout", Limit: 10},
		{Query: "pale ale", Limit: 5},
		{Query: "ale OR porter", Limit: 7, OrderBy: "size"},
	} {
		want, err := single.Search(context.Background(), req)
		require.NoError(t, err)
		got, err := split.Search(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, want.TotalHits, got.TotalHits, req.Query)
		assert.Equal(t, titles(want.Hits), titles(got.Hits), req.Query)
	}
}

func TestSearchAbortsOnBindError(t *testing.T) {
	e := newIndex(t, []beer{{"beer", 1, 1}}, []beer{{"beer", 2, 2}})
	td, err := collector.NewTopDocs(3)
	require.NoError(t, err)
	boom := errors.New("no such column")
	c := collector.TweakScore[int](td, collector.ScoreTweakerFunc[int](func(r collector.SegmentReader) (collector.SegmentScoreTweaker[int], error) {
		return nil, boom
	}))

	segments := e.Segments()
	q := query.New(parser.Parse("beer"), segments)
	_, _, err = Search[[]collector.RankedDoc[int]](context.Background(), New(2, nil), segments, q, c)
	assert.ErrorIs(t, err, boom)
}

func TestSearchHonoursCancelledContext(t *testing.T) {
	e := newIndex(t, []beer{{"beer", 1, 1}})
	td, err := collector.NewTopDocs(3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	segments := e.Segments()
	_, _, err = Search[collector.ScoredDocs](ctx, New(1, nil), segments, query.New(parser.Parse("beer"), segments), td)
	assert.ErrorIs(t, err, context.Canceled)
}
