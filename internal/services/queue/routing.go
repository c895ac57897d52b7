package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/infamy/pkg/queue"
)

// claimScript takes or refreshes ownership of a conversation and returns the
// current owner.
var claimScript = redis.NewScript(`
local owner = redis.call("get", KEYS[1])
if owner == false or owner == ARGV[1] then
	redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[2])
	return ARGV[1]
end
return owner
`)

// InboxKey is the list of messages forwarded to one worker.
func InboxKey(workerID string) string {
	return MessagesKey + ":" + workerID
}

func ownerKey(conversationID string) string {
	return "conversation-owner:" + conversationID
}

// DequeueFor blocks for up to timeout waiting for the next request for
// workerID. Forwarded messages in the worker's inbox are served before the
// shared queue. It returns nil, nil when the wait times out.
func (mq *MessageQueue) DequeueFor(ctx context.Context, workerID string, timeout time.Duration) (*queue.Request, error) {
	result, err := mq.client.rdb.BLPop(ctx, timeout, InboxKey(workerID), MessagesKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}
	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// Forward hands a request to the inbox of the worker that owns its conversation.
func (mq *MessageQueue) Forward(ctx context.Context, workerID string, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := mq.client.rdb.RPush(ctx, InboxKey(workerID), data).Err(); err != nil {
		return fmt.Errorf("failed to forward request: %w", err)
	}
	mq.client.logger.Debug("Message forwarded",
		"request_id", req.RequestID,
		"conversation_id", req.Message.ConversationID,
		"owner", workerID)
	return nil
}

// ClaimConversation makes workerID the owner of conversationID for ttl unless
// another worker already owns it. It returns the owner after the claim.
func (mq *MessageQueue) ClaimConversation(ctx context.Context, conversationID, workerID string, ttl time.Duration) (string, error) {
	owner, err := claimScript.Run(ctx, mq.client.rdb, []string{ownerKey(conversationID)}, workerID, ttl.Milliseconds()).Text()
	if err != nil {
		return "", fmt.Errorf("failed to claim conversation: %w", err)
	}
	return owner, nil
}
