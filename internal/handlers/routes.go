package handlers

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/infamy/pkg/storage"
)

// Routes wires every API endpoint onto one mux.
func Routes(store storage.Storage, q Enqueuer, rdb *redis.Client, health map[string]Pinger, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/health", NewHealthHandler(health, logger))
	mux.Handle("/v1/messages", NewMessagesHandler(q, logger))
	mux.Handle("GET /v1/events/conversations/{conversationID}", NewEventsHandler(rdb, logger))

	characters := NewCharactersHandler(store, logger)
	mux.HandleFunc("GET /v1/characters/{id}", characters.Character)
	mux.HandleFunc("GET /v1/leaderboard", characters.Leaderboard)
	return mux
}
