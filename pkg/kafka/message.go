// Package kafka carries the two event streams of the blog service over
// segmentio/kafka-go: content-changed notices between instances and search
// events into the analytics service. Payloads are JSON; the event type
// travels as a header so consumers can skip what they do not handle.
package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

const typeHeader = "event-type"

// Event is what producers publish. Key picks the partition.
type Event struct {
	Key   string
	Type  string
	Value any
}

// Message is what a MessageHandler receives.
type Message struct {
	Key   []byte
	Type  string
	Value []byte
}

func encode(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s event: %w", e.Type, err)
	}
	msg := kafka.Message{Key: []byte(e.Key), Value: value}
	if e.Type != "" {
		msg.Headers = []kafka.Header{{Key: typeHeader, Value: []byte(e.Type)}}
	}
	return msg, nil
}

func decode(m kafka.Message) Message {
	out := Message{Key: m.Key, Value: m.Value}
	for _, h := range m.Headers {
		if h.Key == typeHeader {
			out.Type = string(h.Value)
			break
		}
	}
	return out
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
