package chat

import (
	"context"
	"sync"
	"time"
)

// MockInput replays a scripted sequence of messages for tests. Each Await call
// consumes script entries in order: entries that do not match are discarded,
// the first matching entry is returned, and a Timeout entry (or running out of
// script) yields ErrInputTimeout.
type MockInput struct {
	mu     sync.Mutex
	script []scriptEntry
	awaits int
}

type scriptEntry struct {
	msg     Message
	timeout bool
}

var _ Input = (*MockInput)(nil)

// NewMockInput creates an empty scripted input.
func NewMockInput() *MockInput {
	return &MockInput{}
}

// Say appends a message from author in conversation to the script.
func (m *MockInput) Say(conversationID, authorID, content string) *MockInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptEntry{msg: Message{
		ConversationID: conversationID,
		AuthorID:       authorID,
		Content:        content,
		SentAt:         time.Now(),
	}})
	return m
}

// Timeout appends a deadline expiry to the script.
func (m *MockInput) Timeout() *MockInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptEntry{timeout: true})
	return m
}

// Remaining reports how many script entries have not been consumed.
func (m *MockInput) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}

// Awaits reports how many times Await was called.
func (m *MockInput) Awaits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.awaits
}

func (m *MockInput) Await(ctx context.Context, conversationID string, match Predicate, deadline time.Time) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awaits++

	for len(m.script) > 0 {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		entry := m.script[0]
		m.script = m.script[1:]
		if entry.timeout {
			return Message{}, ErrInputTimeout
		}
		if entry.msg.ConversationID == conversationID && match(entry.msg) {
			return entry.msg, nil
		}
	}
	return Message{}, ErrInputTimeout
}

// NarratedLine is one line captured by MockNarrator.
type NarratedLine struct {
	ConversationID string
	Text           string
	TTL            time.Duration
}

// MockNarrator records narration for assertions.
type MockNarrator struct {
	mu    sync.Mutex
	lines []NarratedLine
}

var _ Narrator = (*MockNarrator)(nil)

func NewMockNarrator() *MockNarrator {
	return &MockNarrator{}
}

func (n *MockNarrator) Narrate(ctx context.Context, conversationID string, text string, ttl time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lines = append(n.lines, NarratedLine{ConversationID: conversationID, Text: text, TTL: ttl})
}

// Lines returns a copy of everything narrated so far.
func (n *MockNarrator) Lines() []NarratedLine {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]NarratedLine, len(n.lines))
	copy(out, n.lines)
	return out
}

// Texts returns just the narrated text.
func (n *MockNarrator) Texts() []string {
	lines := n.Lines()
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// Last returns the most recent narrated text, or "".
func (n *MockNarrator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.lines) == 0 {
		return ""
	}
	return n.lines[len(n.lines)-1].Text
}
