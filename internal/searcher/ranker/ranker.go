// Package ranker implements Okapi BM25 term weighting.
package ranker

import "math"

const (
	k1 = 1.2
	b  = 0.75
)

// Stats are collection-wide statistics shared by every segment of a search,
// so a document scores the same whichever segment holds it.
type Stats struct {
	TotalDocs    uint64
	AvgDocLength float64
}

// NewStats derives Stats from a document count and a token count.
func NewStats(totalDocs, totalTokens uint64) Stats {
	s := Stats{TotalDocs: totalDocs}
	if totalDocs > 0 {
		s.AvgDocLength = float64(totalTokens) / float64(totalDocs)
	}
	return s
}

// Weight scores one term.
type Weight struct {
	idf          float64
	avgDocLength float64
}

func NewWeight(stats Stats, docFreq uint64) Weight {
	return Weight{
		idf:          computeIDF(stats.TotalDocs, docFreq),
		avgDocLength: stats.AvgDocLength,
	}
}

func (w Weight) IDF() float64 { return w.idf }

// Score returns the BM25 contribution of a term occurring termFreq times in a
// document of docLength tokens.
func (w Weight) Score(termFreq uint32, docLength uint32) float32 {
	return float32(w.idf * computeTFNorm(float64(termFreq), float64(docLength), w.avgDocLength))
}

func computeIDF(totalDocs uint64, docFreq uint64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
