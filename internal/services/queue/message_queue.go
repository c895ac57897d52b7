package queue

import (
	"context"
	"fmt"

	"github.com/jwebster45206/infamy/pkg/queue"
)

// MessagesKey is the Redis list every inbound chat message is pushed onto.
const MessagesKey = "inbound-messages"

// MessageQueue is the FIFO between message ingress and the workers.
type MessageQueue struct {
	client *Client
}

func NewMessageQueue(client *Client) *MessageQueue {
	return &MessageQueue{
		client: client,
	}
}

// Enqueue appends a request to the tail of the queue.
func (mq *MessageQueue) Enqueue(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := mq.client.rdb.RPush(ctx, MessagesKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	mq.client.logger.Debug("Message enqueued",
		"request_id", req.RequestID,
		"conversation_id", req.Message.ConversationID)
	return nil
}

// Depth returns the number of requests waiting.
func (mq *MessageQueue) Depth(ctx context.Context) (int, error) {
	count, err := mq.client.rdb.LLen(ctx, MessagesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}
