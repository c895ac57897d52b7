package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	// sessionTTL bounds how long a crashed command can hold a participant's session.
	sessionTTL = 15 * time.Minute
	// conversationTTL must outlast the longest prompt timeout, since every
	// message in a conversation refreshes its owner.
	conversationTTL = 2 * time.Minute
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Dequeuer pops inbound messages and routes each conversation to the worker
// whose prompts are waiting on it.
type Dequeuer interface {
	DequeueFor(ctx context.Context, workerID string, timeout time.Duration) (*queue.Request, error)
	ClaimConversation(ctx context.Context, conversationID, workerID string, ttl time.Duration) (string, error)
	Forward(ctx context.Context, workerID string, req *queue.Request) error
}

// Dispatcher runs chat commands.
type Dispatcher interface {
	IsCommand(content string) bool
	Exclusive(content string) bool
	Dispatch(ctx context.Context, msg chat.Message) error
}

// Deliverer hands a message to commands waiting for input.
type Deliverer interface {
	Deliver(msg chat.Message) int
}

// Directory remembers who has spoken.
type Directory interface {
	RememberParticipant(ctx context.Context, p chat.Participant) error
}

// Echoer relays participant messages to conversation subscribers.
type Echoer interface {
	PublishMessage(ctx context.Context, msg chat.Message) error
}

// Worker feeds queued messages to waiting prompts and to the command dispatcher.
type Worker struct {
	id          string
	queue       Dequeuer
	hub         Deliverer
	dispatcher  Dispatcher
	directory   Directory
	echo        Echoer
	narrator    chat.Narrator
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	running     sync.WaitGroup
}

// Deps bundles the collaborators of a Worker.
type Deps struct {
	Queue       Dequeuer
	Hub         Deliverer
	Dispatcher  Dispatcher
	Directory   Directory
	Echo        Echoer
	Narrator    chat.Narrator
	RedisClient *redis.Client
	Logger      *slog.Logger
}

// New creates a new worker instance
func New(deps Deps, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.NewString()[:8])
	}
	return &Worker{
		id:          workerID,
		queue:       deps.Queue,
		hub:         deps.Hub,
		dispatcher:  deps.Dispatcher,
		directory:   deps.Directory,
		echo:        deps.Echo,
		narrator:    deps.Narrator,
		redisClient: deps.RedisClient,
		log:         deps.Logger.With("worker_id", workerID),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start processes the queue until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting")
	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// Stop cancels in-flight commands and waits for them to return.
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
	w.running.Wait()
}

func (w *Worker) processNextRequest() error {
	req, err := w.queue.DequeueFor(w.ctx, w.id, workerTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}
	if err := req.Validate(); err != nil {
		w.log.Warn("Dropping invalid request", "request_id", req.RequestID, "error", err)
		return nil
	}

	owner, err := w.queue.ClaimConversation(w.ctx, req.Message.ConversationID, w.id, conversationTTL)
	switch {
	case err != nil:
		w.log.Error("Failed to claim conversation, handling locally", "error", err,
			"conversation_id", req.Message.ConversationID)
	case owner != w.id:
		if err := w.queue.Forward(w.ctx, owner, req); err != nil {
			return fmt.Errorf("failed to forward request %s: %w", req.RequestID, err)
		}
		return nil
	}
	w.Handle(req.Message)
	return nil
}

// Handle routes one message. A message consumed by a waiting prompt is not
// also run as a command. Exclusive commands hold the author's session so
// they run one at a time; background commands such as a duel do not.
func (w *Worker) Handle(msg chat.Message) {
	log := w.log.With("message_id", msg.ID, "conversation_id", msg.ConversationID, "author_id", msg.AuthorID)

	if err := w.directory.RememberParticipant(w.ctx, chat.Participant{ID: msg.AuthorID, Bot: msg.AuthorBot}); err != nil {
		log.Warn("Failed to remember participant", "error", err)
	}
	if err := w.echo.PublishMessage(w.ctx, msg); err != nil {
		log.Warn("Failed to echo message", "error", err)
	}

	if n := w.hub.Deliver(msg); n > 0 {
		log.Debug("Message answered a prompt", "waiters", n)
		return
	}
	if msg.AuthorBot || !w.dispatcher.IsCommand(msg.Content) {
		return
	}

	exclusive := w.dispatcher.Exclusive(msg.Content)
	if exclusive {
		locked, err := w.acquireSession(msg.AuthorID)
		if err != nil {
			log.Error("Failed to acquire session", "error", err)
			return
		}
		if !locked {
			w.narrator.Narrate(w.ctx, msg.ConversationID,
				fmt.Sprintf("%s, finish what you're doing first.", chat.Mention(msg.AuthorID)), 0)
			return
		}
	}

	w.running.Add(1)
	go func() {
		defer w.running.Done()
		if exclusive {
			defer w.releaseSession(msg.AuthorID)
		}
		if err := w.dispatcher.Dispatch(w.ctx, msg); err != nil {
			log.Warn("Command failed", "error", err)
		}
	}()
}

func sessionKey(participantID string) string {
	return "session:" + participantID
}

// acquireSession claims the participant's command session. Returns false if
// another command of theirs is still running.
func (w *Worker) acquireSession(participantID string) (bool, error) {
	return w.redisClient.SetNX(w.ctx, sessionKey(participantID), w.id, sessionTTL).Result()
}

func (w *Worker) releaseSession(participantID string) {
	// The worker context may already be canceled during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, w.redisClient, []string{sessionKey(participantID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release session", "error", err, "participant_id", participantID)
	}
}
