// Command loadtest drives GET /api/v1/search with a mix of English, Hindi and
// misspelled queries and reports latency percentiles, status codes and how
// many responses applied a translation.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s] [-rps 0] [-queries file]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// defaultQueries mixes translatable English, dictionary-only partials, Hindi
// and misses.
var defaultQueries = []string{
	"dharma",
	"jain philosophy",
	"mahavir",
	"bhagwan",
	"swami",
	"meditation",
	"pilgrimage",
	"धर्म",
	"जैन",
	"महावीर",
	"भगवान",
	"स्वामी विवेकानंद",
	"dharm",
	"jai",
	"quantum chromodynamics",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	RPS         float64
	Queries     []string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the blog service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rps := flag.Float64("rps", 0, "total request rate cap, 0 for unlimited")
	queriesFile := flag.String("queries", "", "file with one query per line")
	flag.Parse()

	queries := defaultQueries
	if *queriesFile != "" {
		f, err := os.Open(*queriesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening queries: %v\n", err)
			os.Exit(1)
		}
		queries, err = readQueries(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		RPS:         *rps,
		Queries:     queries,
	}

	fmt.Println("=== Blog Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	if cfg.RPS > 0 {
		fmt.Printf("Rate cap:    %.0f req/s\n", cfg.RPS)
	}
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	start := time.Now()
	stats := runLoadTest(context.Background(), cfg)
	summary := stats.Summarize(time.Since(start))
	printReport(os.Stdout, summary)
	if summary.Total == 0 {
		os.Exit(1)
	}
}

// readQueries returns the non-blank, non-comment lines of r.
func readQueries(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no queries")
	}
	return out, nil
}

// searchResponse is the subset of the search response the report needs.
type searchResponse struct {
	AppliedTranslation *json.RawMessage `json:"applied_translation"`
	TotalMatches       int              `json:"total_matches"`
}

func runLoadTest(ctx context.Context, cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(cfg.RPS)/10))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		queryIdx := w
		g.Go(func() error {
			for {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				query := cfg.Queries[queryIdx%len(cfg.Queries)]
				queryIdx++
				doSearch(ctx, client, cfg.BaseURL, query, stats)
			}
		})
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	g.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func doSearch(ctx context.Context, client *http.Client, baseURL, query string, stats *Stats) {
	searchURL := fmt.Sprintf("%s/api/v1/search?q=%s", baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		stats.RecordError()
		return
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordError()
		}
		return
	}
	defer resp.Body.Close()

	var out *Outcome
	if resp.StatusCode == http.StatusOK {
		var body searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			out = &Outcome{Translated: body.AppliedTranslation != nil, TotalMatches: body.TotalMatches}
		}
	}
	io.Copy(io.Discard, resp.Body)
	stats.RecordRequest(time.Since(start), resp.StatusCode, out)
}

func printReport(w io.Writer, s Summary) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", s.Total)
	fmt.Fprintf(w, "Successful:      %d\n", s.Success)
	fmt.Fprintf(w, "Errors:          %d\n", s.Errors)
	if s.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.Errors)/float64(s.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", s.RPS)
	}
	if s.Success > 0 {
		fmt.Fprintf(w, "Translated:      %d (%.1f%%)\n", s.Translated, float64(s.Translated)/float64(s.Success)*100)
		fmt.Fprintf(w, "Zero results:    %d (%.1f%%)\n", s.ZeroResults, float64(s.ZeroResults)/float64(s.Success)*100)
	}

	if s.Max > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", s.Min)
		fmt.Fprintf(w, "Avg:    %s\n", s.Avg)
		fmt.Fprintf(w, "P50:    %s\n", s.P50)
		fmt.Fprintf(w, "P90:    %s\n", s.P90)
		fmt.Fprintf(w, "P95:    %s\n", s.P95)
		fmt.Fprintf(w, "P99:    %s\n", s.P99)
		fmt.Fprintf(w, "Max:    %s\n", s.Max)
		fmt.Fprintf(w, "StdDev: %s\n", s.StdDev)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.StatusCodes[code])
	}

	if s.Total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: No requests completed. Is the service running?")
	}
}
