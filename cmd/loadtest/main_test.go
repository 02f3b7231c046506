package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	var sorted []time.Duration
	for i := 1; i <= 100; i++ {
		sorted = append(sorted, time.Duration(i)*time.Millisecond)
	}
	assert.Equal(t, 50*time.Millisecond, percentile(sorted, 50))
	assert.Equal(t, 99*time.Millisecond, percentile(sorted, 99))
	assert.Equal(t, 100*time.Millisecond, percentile(sorted, 100))
	assert.Equal(t, time.Millisecond, percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestReadQueries(t *testing.T) {
	qs, err := readQueries(strings.NewReader("dharma\n\n# comment\n  धर्म  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dharma", "धर्म"}, qs)

	_, err = readQueries(strings.NewReader("# only comments\n"))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := NewStats()
	s.RecordRequest(10*time.Millisecond, 200, &Outcome{Translated: true, TotalMatches: 3})
	s.RecordRequest(30*time.Millisecond, 200, &Outcome{TotalMatches: 0})
	s.RecordRequest(20*time.Millisecond, 429, nil)
	s.RecordError()

	sum := s.Summarize(time.Second)
	assert.Equal(t, int64(4), sum.Total)
	assert.Equal(t, int64(2), sum.Success)
	assert.Equal(t, int64(2), sum.Errors)
	assert.Equal(t, int64(1), sum.Translated)
	assert.Equal(t, int64(1), sum.ZeroResults)
	assert.Equal(t, 10*time.Millisecond, sum.Min)
	assert.Equal(t, 30*time.Millisecond, sum.Max)
	assert.Equal(t, 20*time.Millisecond, sum.Avg)
	assert.Equal(t, map[int]int64{200: 2, 429: 1}, sum.StatusCodes)
	assert.InDelta(t, 4.0, sum.RPS, 0.001)
}

func TestRunLoadTestAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "dharma" {
			w.Write([]byte(`{"applied_translation":{"from":"dharma","to":"धर्म"},"total_matches":2}`))
			return
		}
		w.Write([]byte(`{"applied_translation":null,"total_matches":0}`))
	}))
	defer srv.Close()

	stats := runLoadTest(context.Background(), Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    200 * time.Millisecond,
		RPS:         50,
		Queries:     []string{"dharma", "धर्म"},
	})
	sum := stats.Summarize(200 * time.Millisecond)

	require.Positive(t, sum.Total)
	assert.Equal(t, sum.Total, sum.Success)
	assert.Positive(t, sum.Translated)
	assert.Positive(t, sum.ZeroResults)

	var buf bytes.Buffer
	printReport(&buf, sum)
	assert.Contains(t, buf.String(), "200: ")
	assert.Contains(t, buf.String(), "Translated:")
}
