package ranker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStats(t *testing.T) {
	assert.Equal(t, Stats{TotalDocs: 4, AvgDocLength: 2.5}, NewStats(4, 10))
	assert.Equal(t, Stats{}, NewStats(0, 0))
}

func TestIDFDecreasesWithDocFreq(t *testing.T) {
	stats := NewStats(100, 1000)
	rare := NewWeight(stats, 1)
	common := NewWeight(stats, 90)
	assert.Greater(t, rare.IDF(), common.IDF())
	assert.InDelta(t, math.Log(99/1.5+1), rare.IDF(), 1e-9)
}

func TestScore(t *testing.T) {
	w := NewWeight(NewStats(10, 100), 2)

	t.Run("more occurrences score higher", func(t *testing.T) {
		assert.Greater(t, w.Score(3, 10), w.Score(1, 10))
	})
	t.Run("shorter documents score higher", func(t *testing.T) {
		assert.Greater(t, w.Score(1, 5), w.Score(1, 40))
	})
	t.Run("average length document", func(t *testing.T) {
		want := w.IDF() * (1 * (k1 + 1)) / (1 + k1)
		assert.InDelta(t, want, float64(w.Score(1, 10)), 1e-5)
	})
	t.Run("empty collection", func(t *testing.T) {
		assert.Zero(t, NewWeight(Stats{}, 0).Score(1, 1))
	})
}
