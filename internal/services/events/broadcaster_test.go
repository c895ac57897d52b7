package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/infamy/pkg/chat"
)

func TestBroadcaster_Narrate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	b := NewBroadcaster(rdb, logger)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, Channel("c1"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	b.Narrate(ctx, "c1", "<@u1>, **1:** Attack, **2:** Barrage", 20*time.Second)
	require.NoError(t, b.PublishMessage(ctx, chat.Message{ID: "m1", ConversationID: "c1", AuthorID: "u1", Content: "1"}))

	msgs := sub.Channel()
	var got []Event
	for len(got) < 2 {
		select {
		case m := <-msgs:
			var ev Event
			require.NoError(t, json.Unmarshal([]byte(m.Payload), &ev))
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}

	assert.Equal(t, EventTypeNarration, got[0].Type)
	assert.Equal(t, "<@u1>, **1:** Attack, **2:** Barrage", got[0].Data["text"])
	assert.Equal(t, float64(20), got[0].Data["ttl_seconds"])
	assert.Equal(t, EventTypeMessage, got[1].Type)
	assert.Equal(t, "u1", got[1].Data["author_id"])
}

func TestBroadcaster_NarrateSwallowsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	b := NewBroadcaster(rdb, logger)

	mr.Close()
	assert.NotPanics(t, func() {
		b.Narrate(context.Background(), "c1", "hello", 0)
	})
	assert.Error(t, b.PublishMessage(context.Background(), chat.Message{ConversationID: "c1"}))
}
