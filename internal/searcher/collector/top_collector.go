package collector

import (
	"cmp"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/merger"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

// TopCollector holds the limit shared by the segment collectors of one
// search and merges their fruits.
type TopCollector[T cmp.Ordered] struct {
	limit int
}

// NewTopCollector returns a TopCollector keeping the limit best documents.
// limit must be at least 1.
func NewTopCollector[T cmp.Ordered](limit int) (*TopCollector[T], error) {
	if limit < 1 {
		return nil, apperrors.InvalidInputf("limit must be at least 1, got %d", limit)
	}
	return &TopCollector[T]{limit: limit}, nil
}

// Limit returns the maximum number of documents kept.
func (c *TopCollector[T]) Limit() int { return c.limit }

// ForSegment returns an empty segment collector for the given segment.
func (c *TopCollector[T]) ForSegment(ordinal SegmentOrdinal) *TopSegmentCollector[T] {
	return &TopSegmentCollector[T]{
		segment: ordinal,
		heap:    newTopHeap[T](c.limit),
	}
}

// MergeFruits merges per-segment fruits, each sorted best first, into the
// overall best limit documents.
func (c *TopCollector[T]) MergeFruits(fruits [][]RankedDoc[T]) ([]RankedDoc[T], error) {
	return merger.Merge(fruits, c.limit), nil
}

// TopSegmentCollector keeps the best documents of one segment.
type TopSegmentCollector[T cmp.Ordered] struct {
	segment SegmentOrdinal
	heap    *topHeap[T]
}

// Collect offers doc with its ranking key.
func (c *TopSegmentCollector[T]) Collect(doc DocID, key T) {
	c.heap.offer(RankedDoc[T]{Key: key, Address: DocAddress{Segment: c.segment, Doc: doc}})
}

// Harvest returns the retained documents best first and empties the
// collector.
func (c *TopSegmentCollector[T]) Harvest() []RankedDoc[T] {
	return c.heap.drain()
}

// Len returns the number of documents currently retained.
func (c *TopSegmentCollector[T]) Len() int { return c.heap.Len() }
