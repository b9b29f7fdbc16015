package indexer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
)

func testSchema() (*schema.Schema, schema.Field, schema.Field) {
	b := schema.NewBuilder()
	title := b.AddTextField("title", schema.TEXT|schema.STORED)
	size := b.AddU64Field("size", schema.FAST|schema.STORED)
	return b.MustBuild(), title, size
}

func newEngine(t *testing.T, dir string, maxDocs int) (*Engine, *metrics.Metrics) {
	t.Helper()
	s, _, _ := testSchema()
	m := metrics.New(prometheus.NewRegistry())
	e, err := NewEngine(config.IndexerConfig{
		DataDir:        dir,
		SegmentMaxDocs: maxDocs,
		FlushInterval:  time.Hour,
	}, s, m)
	require.NoError(t, err)
	return e, m
}

func beer(title string, size uint64) schema.Document {
	_, titleField, sizeField := testSchema()
	var d schema.Document
	d.AddText(titleField, title)
	d.AddU64(sizeField, size)
	return d
}

func TestIndexDocumentFlushesAtThreshold(t *testing.T) {
	e, m := newEngine(t, t.TempDir(), 2)
	defer e.Close()

	var flushed []FlushInfo
	e.OnFlush(func(info FlushInfo) { flushed = append(flushed, info) })

	require.NoError(t, e.IndexDocument(beer("pint of beer", 12)))
	assert.Empty(t, e.Segments())
	require.NoError(t, e.IndexDocument(beer("growler of beer", 64)))

	require.Len(t, e.Segments(), 1)
	require.Len(t, flushed, 1)
	assert.Equal(t, uint32(2), flushed[0].Docs)
	assert.Equal(t, 0, e.PendingDocs())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexFlushesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSegments))
}

func TestIndexDocumentRejectsInvalidDocument(t *testing.T) {
	e, _ := newEngine(t, t.TempDir(), 10)
	defer e.Close()

	_, title, _ := testSchema()
	var d schema.Document
	d.AddU64(title, 3)
	assert.ErrorIs(t, e.IndexDocument(d), apperrors.ErrSchema)
	assert.Equal(t, 0, e.PendingDocs())
}

func TestFlushWithNothingBufferedIsNoop(t *testing.T) {
	e, _ := newEngine(t, t.TempDir(), 10)
	defer e.Close()
	require.NoError(t, e.Flush())
	assert.Empty(t, e.Segments())
}

func TestReloadSegmentsPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	writer, _ := newEngine(t, dir, 100)
	reader, _ := newEngine(t, dir, 100)
	defer reader.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, writer.IndexDocument(beer(fmt.Sprintf("beer %d", i), uint64(i))))
		require.NoError(t, writer.Flush())
	}
	require.NoError(t, writer.Close())

	n, err := reader.ReloadSegments()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = reader.ReloadSegments()
	require.NoError(t, err)
	assert.Zero(t, n)

	segments := reader.Segments()
	require.Len(t, segments, 3)
	for i := 1; i < len(segments); i++ {
		assert.Less(t, segments[i-1].Name(), segments[i].Name())
	}
}

func TestRecoveryOnRestart(t *testing.T) {
	dir := t.TempDir()
	e, _ := newEngine(t, dir, 100)
	require.NoError(t, e.IndexDocument(beer("pint of beer", 12)))
	// Close flushes the pending document
	require.NoError(t, e.Close())

	restarted, _ := newEngine(t, dir, 100)
	defer restarted.Close()
	require.Len(t, restarted.Segments(), 1)
	assert.Equal(t, uint32(1), restarted.Segments()[0].DocCount())
}

func TestFlushLoopFlushesOnCancel(t *testing.T) {
	e, _ := newEngine(t, t.TempDir(), 100)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	e.StartFlushLoop(ctx)
	require.NoError(t, e.IndexDocument(beer("pint of beer", 12)))
	cancel()

	assert.Eventually(t, func() bool { return len(e.Segments()) == 1 }, 5*time.Second, 10*time.Millisecond)
}
