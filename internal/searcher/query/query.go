// Package query evaluates a parsed query against one segment at a time.
// The documents of each term are held in roaring bitmaps and combined with
// intersection, union and and-not; scores are BM25 with statistics taken
// over every segment of the search.
package query

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/collector"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/ranker"
)

// Segment is the view of a segment needed to evaluate a query.
type Segment interface {
	Postings(term string) (index.PostingList, error)
	DocFreq(term string) int
	FieldNorm(doc uint32) uint32
	DocCount() uint32
	TotalTokens() uint64
}

type Query struct {
	plan     *parser.QueryPlan
	stats    ranker.Stats
	weights  map[string]ranker.Weight
	docFreqs map[string]int
}

// New prepares plan for evaluation over segments. The segments passed here
// must be the ones later scanned, so that every segment scores with the same
// statistics.
func New[S Segment](plan *parser.QueryPlan, segments []S) *Query {
	var docs, tokens uint64
	docFreqs := make(map[string]int, len(plan.Terms))
	for _, seg := range segments {
		docs += uint64(seg.DocCount())
		tokens += seg.TotalTokens()
		for _, term := range plan.Terms {
			docFreqs[term] += seg.DocFreq(term)
		}
	}
	stats := ranker.NewStats(docs, tokens)
	weights := make(map[string]ranker.Weight, len(plan.Terms))
	for term, df := range docFreqs {
		weights[term] = ranker.NewWeight(stats, uint64(df))
	}
	return &Query{plan: plan, stats: stats, weights: weights, docFreqs: docFreqs}
}

func (q *Query) Plan() *parser.QueryPlan { return q.plan }

func (q *Query) Stats() ranker.Stats { return q.stats }

// DocFreqs returns the number of documents containing each positive term,
// summed over the segments.
func (q *Query) DocFreqs() map[string]int { return q.docFreqs }

// Scan calls fn for every document of seg matching the query, in ascending
// document order, and returns the number of matches. When scoring is false
// every document is passed a score of 0.
func (q *Query) Scan(seg Segment, scoring bool, fn func(collector.DocID, collector.Score)) (int, error) {
	if q.plan.Empty() {
		return 0, nil
	}
	postings := make([]index.PostingList, len(q.plan.Terms))
	var matches *roaring.Bitmap
	for i, term := range q.plan.Terms {
		list, err := seg.Postings(term)
		if err != nil {
			return 0, fmt.Errorf("reading postings of %q: %w", term, err)
		}
		postings[i] = list
		docs := docSet(list)
		switch {
		case matches == nil:
			matches = docs
		case q.plan.Type == parser.QueryOR:
			matches.Or(docs)
		default:
			matches.And(docs)
		}
	}
	for _, term := range q.plan.ExcludeTerms {
		if matches.IsEmpty() {
			break
		}
		list, err := seg.Postings(term)
		if err != nil {
			return 0, fmt.Errorf("reading postings of excluded %q: %w", term, err)
		}
		matches.AndNot(docSet(list))
	}
	if matches.IsEmpty() {
		return 0, nil
	}

	var scores map[uint32]float32
	if scoring {
		scores = make(map[uint32]float32, matches.GetCardinality())
		for i, term := range q.plan.Terms {
			weight := q.weights[term]
			for _, p := range postings[i] {
				if matches.Contains(p.Doc) {
					scores[p.Doc] += weight.Score(p.Frequency, seg.FieldNorm(p.Doc))
				}
			}
		}
	}

	n := 0
	it := matches.Iterator()
	for it.HasNext() {
		doc := it.Next()
		fn(doc, scores[doc])
		n++
	}
	return n, nil
}

func docSet(list index.PostingList) *roaring.Bitmap {
	docs := roaring.New()
	for _, p := range list {
		docs.Add(p.Doc)
	}
	return docs
}
