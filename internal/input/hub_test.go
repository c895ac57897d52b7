package input

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/infamy/pkg/chat"
)

// waitFor polls until n waiters are registered.
func waitFor(t *testing.T, h *Hub, conv string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Waiting(conv) == n }, time.Second, time.Millisecond)
}

func TestHub_DeliversMatchingMessage(t *testing.T) {
	h := NewHub(nil)
	result := make(chan chat.Message, 1)
	go func() {
		msg, err := h.Await(context.Background(), "c1", chat.All(chat.From("u1"), chat.OneOf("1", "2")), time.Now().Add(time.Second))
		assert.NoError(t, err)
		result <- msg
	}()
	waitFor(t, h, "c1", 1)

	assert.Zero(t, h.Deliver(chat.Message{ConversationID: "c1", AuthorID: "u2", Content: "1"}), "other author")
	assert.Zero(t, h.Deliver(chat.Message{ConversationID: "c2", AuthorID: "u1", Content: "1"}), "other conversation")
	assert.Zero(t, h.Deliver(chat.Message{ConversationID: "c1", AuthorID: "u1", Content: "attack"}), "not an option")
	assert.Equal(t, 1, h.Deliver(chat.Message{ConversationID: "c1", AuthorID: "u1", Content: "2"}))

	select {
	case msg := <-result:
		assert.Equal(t, "2", msg.Content)
	case <-time.After(time.Second):
		t.Fatal("waiter never resolved")
	}
	waitFor(t, h, "c1", 0)
}

func TestHub_AllMatchingWaitersResolve(t *testing.T) {
	h := NewHub(nil)
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := h.Await(context.Background(), "c1", chat.From("u1"), time.Now().Add(time.Second))
			assert.NoError(t, err)
			done <- struct{}{}
		}()
	}
	waitFor(t, h, "c1", 2)

	assert.Equal(t, 2, h.Deliver(chat.Message{ConversationID: "c1", AuthorID: "u1", Content: "yes"}))
	for i := 0; i < 2; i++ {
		<-done
	}
}

func TestHub_Timeout(t *testing.T) {
	h := NewHub(nil)
	start := time.Now()
	_, err := h.Await(context.Background(), "c1", anything, start.Add(20*time.Millisecond))
	assert.ErrorIs(t, err, chat.ErrInputTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Zero(t, h.Waiting("c1"))

	_, err = h.Await(context.Background(), "c1", anything, start)
	assert.ErrorIs(t, err, chat.ErrInputTimeout, "a past deadline expires immediately")
}

func TestHub_NonMatchingMessagesDoNotExtendDeadline(t *testing.T) {
	h := NewHub(nil)
	deadline := time.Now().Add(50 * time.Millisecond)
	errc := make(chan error, 1)
	go func() {
		_, err := h.Await(context.Background(), "c1", chat.OneOfFold("yes", "no"), deadline)
		errc <- err
	}()
	waitFor(t, h, "c1", 1)
	h.Deliver(chat.Message{ConversationID: "c1", AuthorID: "u1", Content: "maybe"})

	err := <-errc
	assert.ErrorIs(t, err, chat.ErrInputTimeout)
	assert.False(t, time.Now().Before(deadline))
}

func TestHub_ContextCancel(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Await(ctx, "c1", anything, time.Now().Add(time.Second))
	assert.ErrorIs(t, err, context.Canceled)
}

func anything(chat.Message) bool { return true }

func TestHub_ListenHoldsEarlyAnswer(t *testing.T) {
	h := NewHub(nil)
	sub := h.Listen("c1", chat.From("bob"))
	defer sub.Close()

	// The answer lands before anyone calls Wait.
	assert.Equal(t, 1, h.Deliver(chat.Message{ConversationID: "c1", AuthorID: "bob", Content: "yes"}))

	msg, err := sub.Wait(context.Background(), time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "yes", msg.Content)
}

func TestHub_CloseRemovesWaiter(t *testing.T) {
	h := NewHub(nil)
	sub := h.Listen("c1", anything)
	assert.Equal(t, 1, h.Waiting("c1"))

	sub.Close()
	assert.Zero(t, h.Waiting("c1"))
	assert.Zero(t, h.Deliver(chat.Message{ConversationID: "c1", AuthorID: "bob", Content: "late"}))
}

func TestPrompt_AnswerDuringAnnounce(t *testing.T) {
	h := NewHub(nil)
	answer := chat.Message{ConversationID: "c1", AuthorID: "bob", Content: "no"}

	msg, err := chat.Prompt(context.Background(), h, "c1", chat.From("bob"), time.Now().Add(time.Second), func() {
		h.Deliver(answer)
	})
	require.NoError(t, err)
	assert.Equal(t, "no", msg.Content)
	assert.Zero(t, h.Waiting("c1"))
}
