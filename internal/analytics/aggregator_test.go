package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(query, source string, hits int, latencyMs int64) SearchEvent {
	ev := NewSearchEvent(ChannelHTTP, query, query, source, source == "service" || source == "fallback", hits, min(hits, 6), time.Duration(latencyMs)*time.Millisecond)
	return ev
}

func TestAggregatorTotals(t *testing.T) {
	agg := NewAggregator()
	agg.Record(event("jain", "fallback", 3, 10))
	agg.Record(event("jain", "service", 3, 20))
	agg.Record(event("धर्म", "passthrough", 0, 5))
	agg.Record(event("xyz", "identity", 0, 40))

	stats := agg.Stats()
	assert.EqualValues(t, 4, stats.TotalSearches)
	assert.EqualValues(t, 2, stats.TranslatedCount)
	assert.EqualValues(t, 1, stats.FallbackCount)
	assert.EqualValues(t, 2, stats.ZeroResultCount)
	assert.Equal(t, map[string]int64{"fallback": 1, "service": 1, "passthrough": 1, "identity": 1}, stats.BySource)
	assert.Equal(t, map[string]int64{"http": 4}, stats.ByChannel)
	assert.Equal(t, QueryCount{Query: "jain", Count: 2}, stats.TopQueries[0])
	assert.Equal(t, []QueryCount{{Query: "xyz", Count: 1}, {Query: "धर्म", Count: 1}}, stats.ZeroResultQueries)
	assert.InDelta(t, 18.75, stats.AvgLatencyMs, 0.001)
	assert.EqualValues(t, 40, stats.P99LatencyMs)
}

func TestAggregatorLatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+50; i++ {
		agg.Record(event("q", "identity", 1, int64(i)))
	}
	assert.Len(t, agg.latencies, maxLatencySamples)
	assert.EqualValues(t, maxLatencySamples+50, agg.Stats().TotalSearches)
}

func TestAggregatorQueriesPerMinute(t *testing.T) {
	agg := NewAggregator()
	start := agg.startTime
	agg.now = func() time.Time { return start.Add(2 * time.Minute) }
	for i := 0; i < 10; i++ {
		agg.Record(event(fmt.Sprint(i), "identity", 1, 1))
	}
	assert.InDelta(t, 5.0, agg.Stats().QueriesPerMinute, 0.001)
}

func TestAggregatorSeed(t *testing.T) {
	agg := NewAggregator()
	agg.Seed(AggregatedStats{
		TotalSearches:   10,
		TranslatedCount: 4,
		BySource:        map[string]int64{"service": 4},
		TopQueries:      []QueryCount{{Query: "jain", Count: 7}},
	})
	agg.Record(event("jain", "service", 1, 1))

	stats := agg.Stats()
	assert.EqualValues(t, 11, stats.TotalSearches)
	assert.EqualValues(t, 5, stats.TranslatedCount)
	assert.EqualValues(t, 5, stats.BySource["service"])
	assert.Equal(t, QueryCount{Query: "jain", Count: 8}, stats.TopQueries[0])
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)

	value, err := json.Marshal(event("dharma", "service", 2, 12))
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), kafka.Message{Type: "search", Value: value}))
	require.NoError(t, handle(context.Background(), kafka.Message{Value: []byte("not json")}))

	assert.EqualValues(t, 1, agg.Stats().TotalSearches)
}

func TestNewSearchEventType(t *testing.T) {
	assert.Equal(t, EventZeroResult, NewSearchEvent(ChannelLive, "q", "q", "identity", false, 0, 0, 0).Type)
	ev := NewSearchEvent(ChannelLive, "q", "q", "identity", false, 3, 3, 1500*time.Microsecond)
	assert.Equal(t, EventSearch, ev.Type)
	assert.EqualValues(t, 1, ev.LatencyMs)
}
