package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInputTimeout is returned by Input.Await when the deadline passes without
// a matching message.
var ErrInputTimeout = errors.New("timed out waiting for input")

// Message is one chat message posted by a participant in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AuthorID       string    `json:"author_id"`
	AuthorBot      bool      `json:"author_bot,omitempty"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
}

// MessageRequest is the body accepted by the message ingress endpoint.
type MessageRequest struct {
	ConversationID string `json:"conversation_id"`
	AuthorID       string `json:"author_id"`
	AuthorBot      bool   `json:"author_bot,omitempty"`
	Content        string `json:"content"`
}

func (mr *MessageRequest) Validate() error {
	if strings.TrimSpace(mr.ConversationID) == "" {
		return fmt.Errorf("conversation_id cannot be empty")
	}
	if strings.TrimSpace(mr.AuthorID) == "" {
		return fmt.Errorf("author_id cannot be empty")
	}
	if mr.Content == "" {
		return fmt.Errorf("content cannot be empty")
	}
	return nil
}

// Predicate decides whether a message satisfies a waiter.
type Predicate func(Message) bool

// Input delivers the next message in a conversation that matches a predicate.
// Non-matching messages are not consumed by the waiter and do not move the deadline.
type Input interface {
	Await(ctx context.Context, conversationID string, match Predicate, deadline time.Time) (Message, error)
}

// Subscription is a registered waiter for one matching message.
type Subscription interface {
	Wait(ctx context.Context, deadline time.Time) (Message, error)
	Close()
}

// Listener is implemented by inputs that can register a waiter ahead of the
// question it answers.
type Listener interface {
	Listen(conversationID string, match Predicate) Subscription
}

// Prompt runs announce and then waits for a matching message. When in is a
// Listener the waiter is registered before announce, so an answer that
// arrives right after the question is not lost.
func Prompt(ctx context.Context, in Input, conversationID string, match Predicate, deadline time.Time, announce func()) (Message, error) {
	if l, ok := in.(Listener); ok {
		sub := l.Listen(conversationID, match)
		defer sub.Close()
		announce()
		return sub.Wait(ctx, deadline)
	}
	announce()
	return in.Await(ctx, conversationID, match, deadline)
}

// Narrator emits a line of text to a conversation. A non-zero ttl asks the
// client to expire the line after that long. Narration is fire-and-forget:
// implementations log delivery failures instead of returning them.
type Narrator interface {
	Narrate(ctx context.Context, conversationID string, text string, ttl time.Duration)
}

// Mention renders a participant reference the way the chat client links it.
func Mention(participantID string) string {
	return "<@" + participantID + ">"
}

// ParseMention extracts a participant id from "<@id>" or "<@!id>". Bare ids are
// returned unchanged.
func ParseMention(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		id := strings.TrimPrefix(strings.TrimSuffix(s[2:], ">"), "!")
		return id, id != ""
	}
	if s == "" || strings.ContainsAny(s, " <>@") {
		return "", false
	}
	return s, true
}

// Participant is an identity that can hold a character and send input.
type Participant struct {
	ID  string `json:"id"`
	Bot bool   `json:"bot"`
}
