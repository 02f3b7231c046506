package main

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats collects per-request outcomes from every worker.
type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	translated    atomic.Int64
	zeroResults   atomic.Int64

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

// Outcome is what one search response told us.
type Outcome struct {
	Translated   bool
	TotalMatches int
}

func (s *Stats) RecordError() {
	s.totalRequests.Add(1)
	s.errorCount.Add(1)
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, out *Outcome) {
	s.totalRequests.Add(1)
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if out != nil {
		if out.Translated {
			s.translated.Add(1)
		}
		if out.TotalMatches == 0 {
			s.zeroResults.Add(1)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, duration)
	s.statusCodes[statusCode]++
}

// Summary is the report printed at the end of a run.
type Summary struct {
	Total       int64
	Success     int64
	Errors      int64
	Translated  int64
	ZeroResults int64
	RPS         float64

	Min, Avg, P50, P90, P95, P99, Max, StdDev time.Duration

	StatusCodes map[int]int64
}

func (s *Stats) Summarize(elapsed time.Duration) Summary {
	sum := Summary{
		Total:       s.totalRequests.Load(),
		Success:     s.successCount.Load(),
		Errors:      s.errorCount.Load(),
		Translated:  s.translated.Load(),
		ZeroResults: s.zeroResults.Load(),
		StatusCodes: make(map[int]int64),
	}
	if elapsed > 0 {
		sum.RPS = float64(sum.Total) / elapsed.Seconds()
	}

	s.mu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	for k, v := range s.statusCodes {
		sum.StatusCodes[k] = v
	}
	s.mu.Unlock()

	if len(latencies) == 0 {
		return sum
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	sum.Avg = total / time.Duration(len(latencies))
	sum.Min = latencies[0]
	sum.Max = latencies[len(latencies)-1]
	sum.P50 = percentile(latencies, 50)
	sum.P90 = percentile(latencies, 90)
	sum.P95 = percentile(latencies, 95)
	sum.P99 = percentile(latencies, 99)

	var sq float64
	for _, l := range latencies {
		d := float64(l - sum.Avg)
		sq += d * d
	}
	sum.StdDev = time.Duration(math.Sqrt(sq / float64(len(latencies))))
	return sum
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
