// Package input routes chat messages from the queue consumer to the command
// goroutines waiting on them.
package input

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/infamy/pkg/chat"
)

// Hub implements chat.Input for one worker process. Every waiter whose
// predicate matches a delivered message receives it, so two flows waiting on
// the same participant both see the same answer.
type Hub struct {
	mu      sync.Mutex
	waiters map[string]map[*waiter]struct{}
	logger  *slog.Logger
}

type waiter struct {
	match chat.Predicate
	ch    chan chat.Message
}

var _ chat.Input = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		waiters: make(map[string]map[*waiter]struct{}),
		logger:  logger,
	}
}

var _ chat.Listener = (*Hub)(nil)

// Await blocks until a delivered message in conversationID satisfies match,
// the deadline passes (chat.ErrInputTimeout) or ctx ends.
func (h *Hub) Await(ctx context.Context, conversationID string, match chat.Predicate, deadline time.Time) (chat.Message, error) {
	sub := h.Listen(conversationID, match)
	defer sub.Close()
	return sub.Wait(ctx, deadline)
}

// Listen registers a waiter right away. Messages delivered before Wait is
// called are held for it.
func (h *Hub) Listen(conversationID string, match chat.Predicate) chat.Subscription {
	w := &waiter{match: match, ch: make(chan chat.Message, 1)}
	h.add(conversationID, w)
	return &subscription{hub: h, conversationID: conversationID, w: w}
}

type subscription struct {
	hub            *Hub
	conversationID string
	w              *waiter
}

func (s *subscription) Wait(ctx context.Context, deadline time.Time) (chat.Message, error) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case msg := <-s.w.ch:
		return msg, nil
	case <-timer.C:
		return chat.Message{}, chat.ErrInputTimeout
	case <-ctx.Done():
		return chat.Message{}, ctx.Err()
	}
}

func (s *subscription) Close() {
	s.hub.remove(s.conversationID, s.w)
}

// Deliver hands msg to every matching waiter and returns how many took it.
func (h *Hub) Deliver(msg chat.Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for w := range h.waiters[msg.ConversationID] {
		if !w.match(msg) {
			continue
		}
		select {
		case w.ch <- msg:
			delivered++
		default:
		}
		delete(h.waiters[msg.ConversationID], w)
	}
	if delivered > 0 {
		h.logger.Debug("Delivered message to waiters", "conversation_id", msg.ConversationID, "waiters", delivered)
	}
	return delivered
}

// Waiting reports how many waiters are registered for a conversation.
func (h *Hub) Waiting(conversationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiters[conversationID])
}

func (h *Hub) add(conversationID string, w *waiter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.waiters[conversationID]
	if !ok {
		set = make(map[*waiter]struct{})
		h.waiters[conversationID] = set
	}
	set[w] = struct{}{}
}

func (h *Hub) remove(conversationID string, w *waiter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.waiters[conversationID]
	delete(set, w)
	if len(set) == 0 {
		delete(h.waiters, conversationID)
	}
}
