package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(9), percentile(sorted, 90))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestStatsReport(t *testing.T) {
	s := NewStats()
	s.RecordRequest(10*time.Millisecond, 200, true, 10, nil)
	s.RecordRequest(30*time.Millisecond, 200, false, 4, nil)
	s.RecordRequest(20*time.Millisecond, 400, false, 0, nil)
	s.RecordRequest(0, 0, false, 0, errors.New("connection refused"))

	r := s.Report(2 * time.Second)
	assert.Equal(t, int64(4), r.Total)
	assert.Equal(t, int64(2), r.Success)
	assert.Equal(t, int64(2), r.Errors)
	assert.Equal(t, int64(1), r.CacheHits)
	assert.Equal(t, int64(14), r.HitsReturned)
	assert.Equal(t, 2.0, r.RequestsPerSec)
	assert.Equal(t, 10*time.Millisecond, r.Min)
	assert.Equal(t, 20*time.Millisecond, r.Avg)
	assert.Equal(t, 30*time.Millisecond, r.Max)
	assert.Equal(t, map[int]int64{200: 2, 400: 1}, r.StatusCodes)

	var out bytes.Buffer
	r.Print(&out)
	assert.Contains(t, out.String(), "Cache Hit Rate:  50.00%")
	assert.Contains(t, out.String(), "  400: 1")
}

func TestBuildURLCyclesOrdering(t *testing.T) {
	cfg := Config{BaseURL: "http://search", Limit: 5, Queries: []string{"ale", "stout"}, OrderBy: []string{"", "size"}}
	assert.Equal(t, "http://search/api/v1/search?limit=5&q=ale", buildURL(cfg, 0))
	assert.Equal(t, "http://search/api/v1/search?limit=5&order_by=size&q=stout", buildURL(cfg, 1))
}
