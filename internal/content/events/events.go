// Package events fans content changes out over Kafka so every service
// instance drops its post cache after a write made elsewhere.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
)

// ChangeEvent is the payload on the content-changed topic.
type ChangeEvent struct {
	Kind   content.ChangeKind `json:"kind"`
	PostID string             `json:"post_id"`
	Origin string             `json:"origin"`
	At     time.Time          `json:"at"`
}

// Publisher is the subset of kafka.Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Notifier implements content.ChangeNotifier on a Kafka topic.
type Notifier struct {
	pub    Publisher
	origin string
}

// NewNotifier tags events with origin so the writing instance can skip its
// own echo.
func NewNotifier(pub Publisher, origin string) *Notifier {
	return &Notifier{pub: pub, origin: origin}
}

func (n *Notifier) PostChanged(ctx context.Context, kind content.ChangeKind, id string) error {
	return n.pub.Publish(ctx, kafka.Event{
		Key:  id,
		Type: string(kind),
		Value: ChangeEvent{
			Kind:   kind,
			PostID: id,
			Origin: n.origin,
			At:     time.Now().UTC(),
		},
	})
}

// Invalidator drops cached content.
type Invalidator interface {
	Invalidate()
}

// Handler returns a kafka.MessageHandler that invalidates target for
// changes made by other instances. Undecodable messages still invalidate.
func Handler(target Invalidator, origin string) kafka.MessageHandler {
	logger := slog.Default().With("component", "content-events")
	return func(ctx context.Context, msg kafka.Message) error {
		ev, err := kafka.DecodeJSON[ChangeEvent](msg.Value)
		if err != nil {
			logger.Warn("undecodable content event, invalidating anyway", "error", err)
			target.Invalidate()
			return nil
		}
		if ev.Origin == origin {
			return nil
		}
		logger.Info("remote content change", "post_id", ev.PostID, "kind", ev.Kind, "origin", ev.Origin)
		target.Invalidate()
		return nil
	}
}
