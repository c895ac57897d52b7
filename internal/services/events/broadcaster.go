package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/infamy/pkg/chat"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeNarration EventType = "narration"
	EventTypeMessage   EventType = "message"
)

// Event represents a generic event structure
type Event struct {
	Type           EventType      `json:"type"`
	ConversationID string         `json:"conversation_id"`
	Data           map[string]any `json:"data,omitempty"`
}

// Channel returns the Pub/Sub channel for a conversation.
func Channel(conversationID string) string {
	return "conversation-events:" + conversationID
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ chat.Narrator = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Narrate publishes a line of bot output. Failures are logged, not returned.
func (b *Broadcaster) Narrate(ctx context.Context, conversationID string, text string, ttl time.Duration) {
	event := Event{
		Type:           EventTypeNarration,
		ConversationID: conversationID,
		Data: map[string]any{
			"text":        text,
			"ttl_seconds": int(ttl.Seconds()),
		},
	}
	if err := b.publish(ctx, event); err != nil {
		b.logger.Warn("Narration dropped", "conversation_id", conversationID, "error", err)
	}
}

// PublishMessage echoes a participant's message to everyone in the conversation.
func (b *Broadcaster) PublishMessage(ctx context.Context, msg chat.Message) error {
	return b.publish(ctx, Event{
		Type:           EventTypeMessage,
		ConversationID: msg.ConversationID,
		Data: map[string]any{
			"id":        msg.ID,
			"author_id": msg.AuthorID,
			"content":   msg.Content,
			"sent_at":   msg.SentAt,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	channel := Channel(event.ConversationID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)
	return nil
}
