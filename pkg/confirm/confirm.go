// Package confirm implements the yes/no prompt shared by duel entry, trading,
// merging, upgrading and renaming.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/infamy/pkg/chat"
)

// DefaultTimeout is how long a responder has to answer when none is configured.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of a confirmation prompt.
type Result int

const (
	Declined Result = iota
	Accepted
	TimedOut
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	case TimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Accepted reports whether the prompt was answered "yes". TimedOut counts as a decline.
func (r Result) Accepted() bool {
	return r == Accepted
}

// Prompter asks a participant a yes/no question and waits for the answer.
type Prompter struct {
	input    chat.Input
	narrator chat.Narrator
	timeout  time.Duration
	now      func() time.Time
}

// NewPrompter creates a Prompter. A zero timeout uses DefaultTimeout.
func NewPrompter(input chat.Input, narrator chat.Narrator, timeout time.Duration) *Prompter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prompter{
		input:    input,
		narrator: narrator,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Ask narrates prompt (when non-empty) and blocks until responderID answers
// "yes" or "no" in the conversation, or the deadline passes. The deadline is
// fixed when the prompt is issued; ignored messages do not extend it.
func (p *Prompter) Ask(ctx context.Context, conversationID, responderID, prompt string) (Result, error) {
	deadline := p.now().Add(p.timeout)
	msg, err := chat.Prompt(ctx, p.input, conversationID, Answer(responderID), deadline, func() {
		if prompt != "" {
			p.narrator.Narrate(ctx, conversationID, prompt, 0)
		}
	})
	if err != nil {
		if errors.Is(err, chat.ErrInputTimeout) {
			return TimedOut, nil
		}
		return Declined, fmt.Errorf("failed to await confirmation: %w", err)
	}

	if strings.EqualFold(msg.Content, "yes") {
		return Accepted, nil
	}
	return Declined, nil
}

// Answer matches an exact, case-insensitive "yes" or "no" from responderID.
func Answer(responderID string) chat.Predicate {
	return chat.All(chat.From(responderID), chat.OneOfFold("yes", "no"))
}
