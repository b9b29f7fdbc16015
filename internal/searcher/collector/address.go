// Package collector selects the best documents of a search. A Collector is
// asked for one SegmentCollector per segment; each segment collector sees the
// matching documents of its segment and harvests a fruit, and the fruits of
// all segments are merged into the final result.
//
// Top-K collection keeps the K best documents per segment in a bounded heap
// and merges the per-segment lists, so the result is the same as a single
// top-K scan over the whole index. Documents are ranked by score, or by a key
// computed by a ScoreTweaker, with ties broken by ascending DocAddress.
package collector

import "cmp"

// DocID is a document id local to a segment.
type DocID = uint32

// SegmentOrdinal is the position of a segment in the searched index.
type SegmentOrdinal = uint32

// Score is a relevance score.
type Score = float32

// DocAddress identifies a document for the duration of one search.
type DocAddress struct {
	Segment SegmentOrdinal `json:"segment"`
	Doc     DocID          `json:"doc"`
}

// Compare orders addresses by segment, then doc.
func (a DocAddress) Compare(b DocAddress) int {
	if c := cmp.Compare(a.Segment, b.Segment); c != 0 {
		return c
	}
	return cmp.Compare(a.Doc, b.Doc)
}

// RankedDoc is a document with its ranking key.
type RankedDoc[T cmp.Ordered] struct {
	Key     T          `json:"key"`
	Address DocAddress `json:"address"`
}

// Compare returns a positive number when d ranks above o: a greater key wins,
// and among equal keys the lower address wins. NaN keys rank below every
// other key.
func (d RankedDoc[T]) Compare(o RankedDoc[T]) int {
	if c := cmp.Compare(d.Key, o.Key); c != 0 {
		return c
	}
	return o.Address.Compare(d.Address)
}

// ScoredDocs is the fruit of collectors that rank by score.
type ScoredDocs = []RankedDoc[Score]
