// Command loadtest drives the search service with a fixed query mix and
// reports latency percentiles, cache hit rate and status codes.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-order-by size,]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
	// OrderBy is cycled per request; an empty entry ranks by relevance.
	OrderBy []string
}

var defaultQueries = []string{
	"pale ale",
	"stout OR porter",
	"lager AND NOT light",
	"amber",
	"wheat beer",
	"imperial stout",
	"bitter OR mild",
	"barrel aged",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "result limit per query")
	orderBy := flag.String("order-by", "", "comma separated fast fields to cycle through; an empty entry ranks by relevance")
	queryFile := flag.String("queries", "", "file with one query per line")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		data, err := os.ReadFile(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		queries = nil
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				queries = append(queries, line)
			}
		}
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Queries:     queries,
		OrderBy:     strings.Split(*orderBy, ","),
	}

	fmt.Println("=== Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	start := time.Now()
	stats := runLoadTest(cfg)
	report := stats.Report(time.Since(start))
	report.Print(os.Stdout)
	if report.Total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		w := w
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				searchURL := buildURL(cfg, i)
				start := time.Now()
				status, cached, hits, err := search(ctx, client, searchURL)
				if ctx.Err() != nil {
					return nil
				}
				stats.RecordRequest(time.Since(start), status, cached, hits, err)
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

func buildURL(cfg Config, i int) string {
	params := url.Values{}
	params.Set("q", cfg.Queries[i%len(cfg.Queries)])
	params.Set("limit", strconv.Itoa(cfg.Limit))
	if len(cfg.OrderBy) > 0 {
		if field := cfg.OrderBy[i%len(cfg.OrderBy)]; field != "" {
			params.Set("order_by", field)
		}
	}
	return cfg.BaseURL + "/api/v1/search?" + params.Encode()
}

func search(ctx context.Context, client *http.Client, rawURL string) (status int, cached bool, hits int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Hits []json.RawMessage `json:"hits"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, false, 0, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, resp.Header.Get("X-Cache") == "HIT", len(body.Hits), nil
}
