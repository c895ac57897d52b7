package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/infamy/pkg/chat"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeMessage is a chat message posted by a participant
	RequestTypeMessage RequestType = "message"
)

// Request is one inbound envelope on the message queue.
type Request struct {
	RequestID  string       `json:"request_id"`
	Type       RequestType  `json:"type"`
	Message    chat.Message `json:"message"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}

// NewMessageRequest stamps a chat message with ids and times for the queue.
func NewMessageRequest(mr chat.MessageRequest) *Request {
	now := time.Now().UTC()
	id := uuid.NewString()
	return &Request{
		RequestID: id,
		Type:      RequestTypeMessage,
		Message: chat.Message{
			ID:             id,
			ConversationID: mr.ConversationID,
			AuthorID:       mr.AuthorID,
			AuthorBot:      mr.AuthorBot,
			Content:        mr.Content,
			SentAt:         now,
		},
		EnqueuedAt: now,
	}
}

// Validate checks that a dequeued request can be processed.
func (r *Request) Validate() error {
	if r.Type != RequestTypeMessage {
		return errors.New("unsupported request type: " + string(r.Type))
	}
	if r.Message.ConversationID == "" || r.Message.AuthorID == "" {
		return errors.New("message is missing conversation or author")
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
