package confirm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/infamy/internal/input"
	"github.com/jwebster45206/infamy/pkg/chat"
)

func TestPrompter_Ask(t *testing.T) {
	tests := []struct {
		name   string
		script func(*chat.MockInput)
		want   Result
	}{
		{
			name:   "yes accepts",
			script: func(in *chat.MockInput) { in.Say("c1", "bob", "yes") },
			want:   Accepted,
		},
		{
			name:   "case folded yes accepts",
			script: func(in *chat.MockInput) { in.Say("c1", "bob", "YeS") },
			want:   Accepted,
		},
		{
			name:   "no declines",
			script: func(in *chat.MockInput) { in.Say("c1", "bob", "No") },
			want:   Declined,
		},
		{
			name: "chatter is ignored until an answer arrives",
			script: func(in *chat.MockInput) {
				in.Say("c1", "bob", "hmm let me think").
					Say("c1", "bob", "yes!").
					Say("c1", "bob", "yes")
			},
			want: Accepted,
		},
		{
			name: "answers from other participants are ignored",
			script: func(in *chat.MockInput) {
				in.Say("c1", "mallory", "yes").
					Say("c1", "bob", "no")
			},
			want: Declined,
		},
		{
			name: "answers in other conversations are ignored",
			script: func(in *chat.MockInput) {
				in.Say("c2", "bob", "yes").
					Timeout()
			},
			want: TimedOut,
		},
		{
			name:   "no valid reply before the deadline times out",
			script: func(in *chat.MockInput) { in.Say("c1", "bob", "maybe").Timeout() },
			want:   TimedOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := chat.NewMockInput()
			tt.script(in)
			narrator := chat.NewMockNarrator()
			p := NewPrompter(in, narrator, time.Second)

			got, err := p.Ask(context.Background(), "c1", "bob", "Do you accept? Yes or No?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, in.Awaits(), "a single absolute-deadline wait per prompt")
			assert.Equal(t, []string{"Do you accept? Yes or No?"}, narrator.Texts())
		})
	}
}

func TestPrompter_DeadlineIsFixedAtPrompt(t *testing.T) {
	var gotDeadline time.Time
	in := inputFunc(func(ctx context.Context, conv string, match chat.Predicate, deadline time.Time) (chat.Message, error) {
		gotDeadline = deadline
		return chat.Message{}, chat.ErrInputTimeout
	})
	p := NewPrompter(in, chat.NewMockNarrator(), 15*time.Second)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return issued }

	got, err := p.Ask(context.Background(), "c1", "bob", "")
	require.NoError(t, err)
	assert.Equal(t, TimedOut, got)
	assert.False(t, got.Accepted())
	assert.Equal(t, issued.Add(15*time.Second), gotDeadline)
}

func TestPrompter_InputFailure(t *testing.T) {
	boom := errors.New("connection reset")
	in := inputFunc(func(context.Context, string, chat.Predicate, time.Time) (chat.Message, error) {
		return chat.Message{}, boom
	})
	p := NewPrompter(in, chat.NewMockNarrator(), 0)

	got, err := p.Ask(context.Background(), "c1", "bob", "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Declined, got)
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "declined", Declined.String())
	assert.Equal(t, "timed out", TimedOut.String())
}

type inputFunc func(ctx context.Context, conv string, match chat.Predicate, deadline time.Time) (chat.Message, error)

func (f inputFunc) Await(ctx context.Context, conv string, match chat.Predicate, deadline time.Time) (chat.Message, error) {
	return f(ctx, conv, match, deadline)
}

// answeringNarrator delivers a reply the moment the question is narrated.
type answeringNarrator struct {
	hub   *input.Hub
	reply chat.Message
}

func (n *answeringNarrator) Narrate(ctx context.Context, conversationID string, text string, ttl time.Duration) {
	n.hub.Deliver(n.reply)
}

func TestPrompter_ImmediateAnswerIsNotLost(t *testing.T) {
	hub := input.NewHub(nil)
	narrator := &answeringNarrator{hub: hub, reply: chat.Message{ConversationID: "c1", AuthorID: "bob", Content: "yes"}}
	p := NewPrompter(hub, narrator, time.Second)

	got, err := p.Ask(context.Background(), "c1", "bob", "Do you accept? Yes or No?")
	require.NoError(t, err)
	assert.Equal(t, Accepted, got)
	assert.Zero(t, hub.Waiting("c1"))
}
