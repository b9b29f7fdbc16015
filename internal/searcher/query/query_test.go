package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/collector"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/parser"
)

type memSegment struct {
	postings map[string]index.PostingList
	norms    []uint32
}

func (s memSegment) Postings(term string) (index.PostingList, error) { return s.postings[term], nil }
func (s memSegment) DocFreq(term string) int                        { return len(s.postings[term]) }
func (s memSegment) FieldNorm(doc uint32) uint32                    { return s.norms[doc] }
func (s memSegment) DocCount() uint32                               { return uint32(len(s.norms)) }

func (s memSegment) TotalTokens() uint64 {
	var n uint64
	for _, norm := range s.norms {
		n += uint64(norm)
	}
	return n
}

// docs 0..3: "pale ale", "pale bock", "ale ale stout", "bock"
func testSegment() memSegment {
	return memSegment{
		postings: map[string]index.PostingList{
			"pale":  {{Doc: 0, Frequency: 1}, {Doc: 1, Frequency: 1}},
			"ale":   {{Doc: 0, Frequency: 1}, {Doc: 2, Frequency: 2}},
			"bock":  {{Doc: 1, Frequency: 1}, {Doc: 3, Frequency: 1}},
			"stout": {{Doc: 2, Frequency: 1}},
		},
		norms: []uint32{2, 2, 3, 1},
	}
}

type match struct {
	doc   collector.DocID
	score collector.Score
}

func scan(t *testing.T, raw string, scoring bool, segs ...memSegment) []match {
	t.Helper()
	q := New(parser.Parse(raw), segs)
	var got []match
	n, err := q.Scan(segs[0], scoring, func(doc collector.DocID, score collector.Score) {
		got = append(got, match{doc, score})
	})
	require.NoError(t, err)
	assert.Equal(t, len(got), n)
	return got
}

func docs(matches []match) []collector.DocID {
	out := make([]collector.DocID, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.doc)
	}
	return out
}

func TestScanBooleanLogic(t *testing.T) {
	tests := []struct {
		query string
		want  []collector.DocID
	}{
		{"pale ale", []collector.DocID{0}},
		{"pale OR bock", []collector.DocID{0, 1, 3}},
		{"ale NOT stout", []collector.DocID{0}},
		{"pale OR ale NOT bock", []collector.DocID{0, 2}},
		{"porter", []collector.DocID{}},
		{"NOT ale", []collector.DocID{}},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, docs(scan(t, tc.query, false, testSegment())))
		})
	}
}

func TestScanScores(t *testing.T) {
	got := scan(t, "ale", true, testSegment())
	require.Len(t, got, 2)
	// doc 2 repeats the term
	assert.Greater(t, got[1].score, got[0].score)
	assert.Greater(t, got[0].score, collector.Score(0))

	for _, m := range scan(t, "ale", false, testSegment()) {
		assert.Zero(t, m.score)
	}
}

func TestStatsSpanSegments(t *testing.T) {
	seg := testSegment()
	other := memSegment{
		postings: map[string]index.PostingList{"ale": {{Doc: 0, Frequency: 1}}},
		norms:    []uint32{4, 4},
	}
	q := New(parser.Parse("ale"), []memSegment{seg, other})
	assert.Equal(t, uint64(6), q.Stats().TotalDocs)
	assert.InDelta(t, 16.0/6.0, q.Stats().AvgDocLength, 1e-9)
	assert.Equal(t, map[string]int{"ale": 3}, q.DocFreqs())

	// the same document scores differently once the collection grows
	alone := scan(t, "ale", true, seg)
	var together []match
	_, err := q.Scan(seg, true, func(doc collector.DocID, score collector.Score) {
		together = append(together, match{doc, score})
	})
	require.NoError(t, err)
	assert.NotEqual(t, alone[0].score, together[0].score)
}
