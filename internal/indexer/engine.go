// Package indexer buffers documents in a segment builder, flushes them to
// immutable segment files and keeps the readers of every segment on disk.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
)

// FlushInfo describes a segment written by Flush.
type FlushInfo struct {
	Segment string
	Docs    uint32
	Terms   int
}

type Engine struct {
	mu       sync.RWMutex
	builder  *index.SegmentBuilder
	writer   *segment.Writer
	schema   *schema.Schema
	readers  []*segment.Reader
	loaded   map[string]bool
	readerMu sync.RWMutex
	cfg      config.IndexerConfig
	metrics  *metrics.Metrics
	onFlush  func(FlushInfo)
	logger   *slog.Logger
}

// NewEngine opens every segment already present in cfg.DataDir. m may be nil.
func NewEngine(cfg config.IndexerConfig, s *schema.Schema, m *metrics.Metrics) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		builder: index.NewSegmentBuilder(s, tokenizer.Default()),
		writer:  segment.NewWriter(cfg.DataDir),
		schema:  s,
		loaded:  make(map[string]bool),
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
	n, err := e.ReloadSegments()
	if err != nil {
		return nil, fmt.Errorf("loading existing segments: %w", err)
	}
	e.logger.Info("segment recovery complete", "segments_loaded", n)
	return e, nil
}

// OnFlush registers fn to be called after every successful flush.
func (e *Engine) OnFlush(fn func(FlushInfo)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFlush = fn
}

func (e *Engine) Schema() *schema.Schema { return e.schema }

// IndexDocument buffers doc and flushes once the builder holds
// SegmentMaxDocs documents. A failed flush leaves the documents buffered.
func (e *Engine) IndexDocument(doc schema.Document) error {
	e.mu.RLock()
	docID, err := e.builder.AddDocument(doc)
	pending := e.builder.DocCount()
	e.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("adding document: %w", err)
	}
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.logger.Debug("document buffered", "local_doc", docID, "pending", pending)

	if pending >= e.cfg.SegmentMaxDocs {
		e.logger.Info("segment builder full, flushing to disk",
			"docs", pending,
			"threshold", e.cfg.SegmentMaxDocs,
		)
		// the document is buffered either way; the flush loop retries
		if err := e.Flush(); err != nil {
			e.logger.Error("threshold flush failed", "pending", pending, "error", err)
		}
	}
	return nil
}

// Flush writes the buffered documents as a new segment. Indexing is blocked
// while the segment is written. It is a no-op when nothing is buffered.
func (e *Engine) Flush() error {
	e.mu.Lock()
	if e.builder.DocCount() == 0 {
		e.mu.Unlock()
		return nil
	}
	snapshot := e.builder.Snapshot()
	segmentName, err := e.writer.Write(snapshot)
	if err != nil {
		e.mu.Unlock()
		e.recordFlush("error")
		return fmt.Errorf("writing segment: %w", err)
	}
	e.builder.Reset()
	hook := e.onFlush
	e.mu.Unlock()

	reader, err := e.open(segmentName)
	if err != nil {
		e.recordFlush("error")
		return fmt.Errorf("opening new segment for reading: %w", err)
	}
	e.recordFlush("ok")
	info := FlushInfo{Segment: segmentName, Docs: reader.DocCount(), Terms: reader.Terms()}
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", info.Terms,
		"docs", info.Docs,
		"active_segments", len(e.Segments()),
	)
	if hook != nil {
		hook(info)
	}
	return nil
}

func (e *Engine) recordFlush(status string) {
	if e.metrics != nil {
		e.metrics.IndexFlushesTotal.WithLabelValues(status).Inc()
	}
}

func (e *Engine) open(name string) (*segment.Reader, error) {
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	if e.loaded[name] {
		return nil, fmt.Errorf("segment %s already loaded", name)
	}
	reader, err := segment.OpenReader(filepath.Join(e.cfg.DataDir, name), e.schema)
	if err != nil {
		return nil, err
	}
	e.readers = append(e.readers, reader)
	e.loaded[name] = true
	if e.metrics != nil {
		e.metrics.ActiveSegments.Set(float64(len(e.readers)))
	}
	return reader, nil
}

// Segments returns the open segments. A segment's position in the slice is
// its ordinal; segments are only ever appended, so ordinals stay stable.
func (e *Engine) Segments() []*segment.Reader {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	readers := make([]*segment.Reader, len(e.readers))
	copy(readers, e.readers)
	return readers
}

// ReloadSegments opens the segment files written since the last call, in
// name order, and returns how many were added. Unreadable files are logged
// and skipped.
func (e *Engine) ReloadSegments() (int, error) {
	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading data directory: %w", err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.FileExt) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	sort.Strings(segFiles)

	added := 0
	for _, name := range segFiles {
		e.readerMu.RLock()
		seen := e.loaded[name]
		e.readerMu.RUnlock()
		if seen {
			continue
		}
		reader, err := e.open(name)
		if err != nil {
			e.logger.Error("failed to open segment, skipping",
				"segment", name,
				"error", err,
			)
			continue
		}
		added++
		e.logger.Info("loaded segment",
			"segment", name,
			"terms", reader.Terms(),
			"docs", reader.DocCount(),
		)
	}
	return added, nil
}

// PendingDocs returns the number of buffered, not yet flushed documents.
func (e *Engine) PendingDocs() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.builder.DocCount()
}

func (e *Engine) StartFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.FlushInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final flush")
				if err := e.Flush(); err != nil {
					e.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if e.PendingDocs() > 0 {
					if err := e.Flush(); err != nil {
						e.logger.Error("periodic flush failed", "error", err)
					}
				}
			}
		}
	}()
}

// Close flushes pending documents and closes every segment reader.
func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		e.logger.Error("final flush on close failed", "error", err)
	}
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
	e.loaded = make(map[string]bool)
	return nil
}
