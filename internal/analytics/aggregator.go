package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	TranslatedCount   int64            `json:"translated_count"`
	FallbackCount     int64            `json:"fallback_count"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	BySource          map[string]int64 `json:"by_source"`
	ByChannel         map[string]int64 `json:"by_channel"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over consumed search events.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	translated        int64
	fallback          int64
	zeroResults       int64
	bySource          map[string]int64
	byChannel         map[string]int64
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	now    func() time.Time
	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		bySource:          make(map[string]int64),
		byChannel:         make(map[string]int64),
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Messages that do
// not decode are logged and committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		event, err := kafka.DecodeJSON[SearchEvent](msg.Value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event",
				"type", msg.Type,
				"error", err,
			)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record folds one event into the totals.
func (a *Aggregator) Record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if event.Translated {
		a.translated++
	}
	if event.TranslationSource == "fallback" {
		a.fallback++
	}
	if event.TranslationSource != "" {
		a.bySource[event.TranslationSource]++
	}
	if event.Channel != "" {
		a.byChannel[string(event.Channel)]++
	}

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}

	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
}

// Seed restores counters from a persisted snapshot so a restart does not
// reset totals. Latency samples are not restored.
func (a *Aggregator) Seed(stats AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches += stats.TotalSearches
	a.translated += stats.TranslatedCount
	a.fallback += stats.FallbackCount
	a.zeroResults += stats.ZeroResultCount
	for k, v := range stats.BySource {
		a.bySource[k] += v
	}
	for k, v := range stats.ByChannel {
		a.byChannel[k] += v
	}
	for _, q := range stats.TopQueries {
		a.queryCounts[q.Query] += q.Count
	}
	for _, q := range stats.ZeroResultQueries {
		a.zeroResultQueries[q.Query] += q.Count
	}
	a.logger.Info("aggregator seeded from snapshot", "total_searches", stats.TotalSearches)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		TranslatedCount: a.translated,
		FallbackCount:   a.fallback,
		ZeroResultCount: a.zeroResults,
		BySource:        cloneCounts(a.bySource),
		ByChannel:       cloneCounts(a.byChannel),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := a.now().Sub(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query, so ties are stable across calls.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

func cloneCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
