package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// Channel names where a search came from.
type Channel string

const (
	ChannelHTTP Channel = "http"
	ChannelLive Channel = "live"
	ChannelCLI  Channel = "cli"
)

// SearchEvent is published once per settled search.
type SearchEvent struct {
	Type              EventType `json:"type"`
	Query             string    `json:"query"`
	ResolvedQuery     string    `json:"resolved_query"`
	TranslationSource string    `json:"translation_source"`
	Translated        bool      `json:"translated"`
	TotalHits         int       `json:"total_hits"`
	Returned          int       `json:"returned"`
	LatencyMs         int64     `json:"latency_ms"`
	Channel           Channel   `json:"channel"`
	Timestamp         time.Time `json:"timestamp"`
	RequestID         string    `json:"request_id,omitempty"`
}

// NewSearchEvent fills Type from totalHits and stamps the event.
func NewSearchEvent(channel Channel, query, resolved, source string, translated bool, totalHits, returned int, latency time.Duration) SearchEvent {
	typ := EventSearch
	if totalHits == 0 {
		typ = EventZeroResult
	}
	return SearchEvent{
		Type:              typ,
		Query:             query,
		ResolvedQuery:     resolved,
		TranslationSource: source,
		Translated:        translated,
		TotalHits:         totalHits,
		Returned:          returned,
		LatencyMs:         latency.Milliseconds(),
		Channel:           channel,
		Timestamp:         time.Now().UTC(),
	}
}

// Tracker accepts search events without blocking the caller.
type Tracker interface {
	TrackSearch(event SearchEvent)
}

// Discard is a Tracker that drops every event. It is used when Kafka is
// disabled.
type Discard struct{}

func (Discard) TrackSearch(SearchEvent) {}
