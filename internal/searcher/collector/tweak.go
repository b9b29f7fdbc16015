package collector

import (
	"cmp"
	"fmt"
)

// SegmentScoreTweaker computes the ranking key of a document of one segment
// from its id and relevance score. It must not fail.
type SegmentScoreTweaker[T cmp.Ordered] func(doc DocID, score Score) T

// ScoreTweaker binds to a segment before it is scanned, acquiring whatever
// the per-document function needs.
type ScoreTweaker[T cmp.Ordered] interface {
	ForSegment(reader SegmentReader) (SegmentScoreTweaker[T], error)
}

// ScoreTweakerFunc adapts a function to ScoreTweaker.
type ScoreTweakerFunc[T cmp.Ordered] func(reader SegmentReader) (SegmentScoreTweaker[T], error)

func (f ScoreTweakerFunc[T]) ForSegment(reader SegmentReader) (SegmentScoreTweaker[T], error) {
	return f(reader)
}

// TweakedScoreTopCollector keeps the best documents by tweaked key.
type TweakedScoreTopCollector[T cmp.Ordered] struct {
	tweaker ScoreTweaker[T]
	top     *TopCollector[T]
}

// NewTweakedScoreTopCollector fails with ErrInvalidInput when limit is below 1.
func NewTweakedScoreTopCollector[T cmp.Ordered](tweaker ScoreTweaker[T], limit int) (*TweakedScoreTopCollector[T], error) {
	top, err := NewTopCollector[T](limit)
	if err != nil {
		return nil, err
	}
	return &TweakedScoreTopCollector[T]{tweaker: tweaker, top: top}, nil
}

// TweakScore ranks with the limit of td but by the key computed by tweaker.
func TweakScore[T cmp.Ordered](td *TopDocs, tweaker ScoreTweaker[T]) *TweakedScoreTopCollector[T] {
	return &TweakedScoreTopCollector[T]{
		tweaker: tweaker,
		top:     &TopCollector[T]{limit: td.Limit()},
	}
}

// Limit returns the maximum number of documents kept.
func (c *TweakedScoreTopCollector[T]) Limit() int { return c.top.Limit() }

// ForSegment binds the tweaker to the segment first; its error is returned
// and no segment collector is built.
func (c *TweakedScoreTopCollector[T]) ForSegment(ordinal SegmentOrdinal, reader SegmentReader) (SegmentCollector[[]RankedDoc[T]], error) {
	tweak, err := c.tweaker.ForSegment(reader)
	if err != nil {
		return nil, fmt.Errorf("binding score tweaker to segment %d: %w", ordinal, err)
	}
	return &TweakedScoreSegmentCollector[T]{
		tweak: tweak,
		top:   c.top.ForSegment(ordinal),
	}, nil
}

// RequiresScoring is always true: the tweaker may read the score.
func (c *TweakedScoreTopCollector[T]) RequiresScoring() bool { return true }

func (c *TweakedScoreTopCollector[T]) MergeFruits(fruits [][]RankedDoc[T]) ([]RankedDoc[T], error) {
	return c.top.MergeFruits(fruits)
}

// TweakedScoreSegmentCollector applies a segment tweaker to every collected
// document.
type TweakedScoreSegmentCollector[T cmp.Ordered] struct {
	tweak SegmentScoreTweaker[T]
	top   *TopSegmentCollector[T]
}

func (c *TweakedScoreSegmentCollector[T]) Collect(doc DocID, score Score) {
	c.top.Collect(doc, c.tweak(doc, score))
}

func (c *TweakedScoreSegmentCollector[T]) Harvest() []RankedDoc[T] {
	return c.top.Harvest()
}
