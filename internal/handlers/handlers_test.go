package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/infamy/internal/services/events"
	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/queue"
	"github.com/jwebster45206/infamy/pkg/storage"
)

var testLogger = slog.New(slog.DiscardHandler)

type fakeQueue struct {
	mu   sync.Mutex
	reqs []*queue.Request
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, req *queue.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.reqs = append(q.reqs, req)
	return nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestMessagesHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		queueErr   error
		wantStatus int
		wantQueued int
	}{
		{"accepted", http.MethodPost, `{"conversation_id":"c1","author_id":"alice","content":">>profile"}`, nil, http.StatusAccepted, 1},
		{"wrong method", http.MethodGet, ``, nil, http.StatusMethodNotAllowed, 0},
		{"bad json", http.MethodPost, `{`, nil, http.StatusBadRequest, 0},
		{"missing author", http.MethodPost, `{"conversation_id":"c1","content":"hi"}`, nil, http.StatusBadRequest, 0},
		{"queue down", http.MethodPost, `{"conversation_id":"c1","author_id":"alice","content":"hi"}`, errors.New("redis down"), http.StatusServiceUnavailable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{err: tt.queueErr}
			rr := httptest.NewRecorder()
			NewMessagesHandler(q, testLogger).ServeHTTP(rr, httptest.NewRequest(tt.method, "/v1/messages", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Len(t, q.reqs, tt.wantQueued)
			if tt.wantQueued == 1 {
				var resp MessageAccepted
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, q.reqs[0].RequestID, resp.RequestID)
				assert.Equal(t, "alice", q.reqs[0].Message.AuthorID)
				assert.Equal(t, ">>profile", q.reqs[0].Message.Content)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		catalogErr error
		wantStatus int
		wantHealth string
	}{
		{"all healthy", nil, http.StatusOK, "healthy"},
		{"catalog down", errors.New("disk gone"), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(map[string]Pinger{
				"redis":   storage.NewMockStorage(),
				"catalog": pinger{err: tt.catalogErr},
			}, testLogger)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantHealth, resp.Status)
			assert.Equal(t, "healthy", resp.Components["redis"])
		})
	}
}

func seededStore(t *testing.T) *storage.MockStorage {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMockStorage()
	for i, id := range []string{"alice", "bob"} {
		sheet := character.NewSheet(id, "Knight", character.Swordsmanship)
		sheet.Level = i + 1
		require.NoError(t, store.CreateCharacter(ctx, sheet))
	}
	require.NoError(t, store.RecordWin(ctx, "alice"))
	require.NoError(t, store.RecordLoss(ctx, "bob"))
	return store
}

func TestCharacterRoutes(t *testing.T) {
	mux := Routes(seededStore(t), &fakeQueue{}, nil, nil, testLogger)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   []string
	}{
		{"character", "/v1/characters/alice", http.StatusOK, []string{`"id":"alice"`, `"duels":{"wins":1,"losses":0}`}},
		{"missing character", "/v1/characters/carol", http.StatusNotFound, []string{"Character not found"}},
		{"level board", "/v1/leaderboard", http.StatusOK, []string{`{"rank":1,"participant_id":"bob","class":"Knight","level":2}`}},
		{"wins board", "/v1/leaderboard?by=wins&limit=5", http.StatusOK, []string{`[{"rank":1,"participant_id":"alice","wins":1}]`}},
		{"bad board", "/v1/leaderboard?by=gold", http.StatusBadRequest, []string{"by must be level or wins"}},
		{"bad limit", "/v1/leaderboard?limit=-2", http.StatusBadRequest, []string{"limit must be"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, rr.Body.String(), want)
			}
		})
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mux := Routes(storage.NewMockStorage(), &fakeQueue{}, rdb, nil, testLogger)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/conversations/tavern", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if text := lines.Text(); text != "" {
				return text
			}
		}
		return ""
	}

	assert.Equal(t, "event: connected", next())
	assert.Contains(t, next(), `"conversation_id":"tavern"`)

	events.NewBroadcaster(rdb, testLogger).Narrate(ctx, "tavern", "<@bob> declined the battle.", 20*time.Second)

	assert.Equal(t, "event: narration", next())
	data := strings.TrimPrefix(next(), "data: ")
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, "<@bob> declined the battle.", payload["text"])
	assert.EqualValues(t, 20, payload["ttl_seconds"])
}

func TestEventsHandler_WrongMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	NewEventsHandler(nil, testLogger).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/events/conversations/x", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
