package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	hitsReturned  atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// RecordRequest records one search round trip. hits is the number of
// documents the response carried.
func (s *Stats) RecordRequest(duration time.Duration, statusCode int, cached bool, hits int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
		s.hitsReturned.Add(int64(hits))
		if cached {
			s.cacheHits.Add(1)
		}
	} else {
		s.errorCount.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

// Report is a point-in-time summary of a run.
type Report struct {
	Total, Success, Errors, CacheHits, HitsReturned int64
	RequestsPerSec                                  float64
	Min, Avg, P50, P90, P99, Max, StdDev            time.Duration
	StatusCodes                                     map[int]int64
}

func (s *Stats) Report(elapsed time.Duration) Report {
	r := Report{
		Total:        s.totalRequests.Load(),
		Success:      s.successCount.Load(),
		Errors:       s.errorCount.Load(),
		CacheHits:    s.cacheHits.Load(),
		HitsReturned: s.hitsReturned.Load(),
		StatusCodes:  make(map[int]int64),
	}
	if elapsed > 0 {
		r.RequestsPerSec = float64(r.Total) / elapsed.Seconds()
	}

	s.mu.Lock()
	latencies := append([]time.Duration(nil), s.latencies...)
	for code, n := range s.statusCodes {
		r.StatusCodes[code] = n
	}
	s.mu.Unlock()

	if len(latencies) == 0 {
		return r
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	r.Avg = sum / time.Duration(len(latencies))
	r.Min = latencies[0]
	r.Max = latencies[len(latencies)-1]
	r.P50 = percentile(latencies, 50)
	r.P90 = percentile(latencies, 90)
	r.P99 = percentile(latencies, 99)

	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l - r.Avg)
		sumSquared += diff * diff
	}
	r.StdDev = time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
	return r
}

func (r Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", r.RequestsPerSec)
	}
	if r.Success > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(r.CacheHits)/float64(r.Success)*100)
		fmt.Fprintf(w, "Hits/response:   %.2f\n", float64(r.HitsReturned)/float64(r.Success))
	}

	if r.Max > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Min)
		fmt.Fprintf(w, "Avg:    %s\n", r.Avg)
		fmt.Fprintf(w, "P50:    %s\n", r.P50)
		fmt.Fprintf(w, "P90:    %s\n", r.P90)
		fmt.Fprintf(w, "P99:    %s\n", r.P99)
		fmt.Fprintf(w, "Max:    %s\n", r.Max)
		fmt.Fprintf(w, "StdDev: %s\n", r.StdDev)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
