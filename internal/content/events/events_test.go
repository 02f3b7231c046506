package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	events []kafka.Event
}

func (c *capturePublisher) Publish(ctx context.Context, e kafka.Event) error {
	c.events = append(c.events, e)
	return nil
}

type counter struct{ n int }

func (c *counter) Invalidate() { c.n++ }

func TestNotifierPublishesChange(t *testing.T) {
	pub := &capturePublisher{}
	require.NoError(t, NewNotifier(pub, "node-a").PostChanged(context.Background(), content.ChangeUpdated, "gita"))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "gita", pub.events[0].Key)
	assert.Equal(t, "post.updated", pub.events[0].Type)
	ev := pub.events[0].Value.(ChangeEvent)
	assert.Equal(t, "node-a", ev.Origin)
}

func TestHandlerSkipsOwnEchoes(t *testing.T) {
	c := &counter{}
	h := Handler(c, "node-a")

	own, _ := json.Marshal(ChangeEvent{Kind: content.ChangeCreated, PostID: "x", Origin: "node-a"})
	remote, _ := json.Marshal(ChangeEvent{Kind: content.ChangeCreated, PostID: "x", Origin: "node-b"})

	require.NoError(t, h(context.Background(), kafka.Message{Value: own}))
	assert.Equal(t, 0, c.n)
	require.NoError(t, h(context.Background(), kafka.Message{Value: remote}))
	assert.Equal(t, 1, c.n)
	require.NoError(t, h(context.Background(), kafka.Message{Value: []byte("garbage")}))
	assert.Equal(t, 2, c.n)
}
