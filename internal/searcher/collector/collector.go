package collector

import (
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/fastfield"
)

// SegmentReader is the view of a segment that collectors need.
type SegmentReader interface {
	FastFields() *fastfield.Readers
}

// Collector produces a fruit of type F for a whole search.
//
// ForSegment is called once per segment before that segment is scanned; an
// error aborts the search. MergeFruits runs after every segment has been
// harvested.
type Collector[F any] interface {
	ForSegment(ordinal SegmentOrdinal, reader SegmentReader) (SegmentCollector[F], error)
	RequiresScoring() bool
	MergeFruits(fruits []F) (F, error)
}

// SegmentCollector collects the matching documents of one segment. It is
// owned by a single goroutine.
type SegmentCollector[F any] interface {
	Collect(doc DocID, score Score)
	Harvest() F
}
