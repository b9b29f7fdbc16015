package collector

// TopDocs collects the best documents by relevance score.
type TopDocs struct {
	top *TopCollector[Score]
}

var _ Collector[ScoredDocs] = (*TopDocs)(nil)

// NewTopDocs returns a collector keeping the limit highest scoring
// documents. It fails with ErrInvalidInput when limit is below 1.
func NewTopDocs(limit int) (*TopDocs, error) {
	top, err := NewTopCollector[Score](limit)
	if err != nil {
		return nil, err
	}
	return &TopDocs{top: top}, nil
}

// Limit returns the number of top documents returned.
func (t *TopDocs) Limit() int { return t.top.Limit() }

func (t *TopDocs) ForSegment(ordinal SegmentOrdinal, _ SegmentReader) (SegmentCollector[ScoredDocs], error) {
	return t.top.ForSegment(ordinal), nil
}

func (t *TopDocs) RequiresScoring() bool { return true }

func (t *TopDocs) MergeFruits(fruits []ScoredDocs) (ScoredDocs, error) {
	return t.top.MergeFruits(fruits)
}
