package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/infamy/internal/services/events"
)

// KeepaliveInterval is how often an idle stream receives a comment line.
var KeepaliveInterval = 30 * time.Second

// EventsHandler streams a conversation's events as Server-Sent Events.
type EventsHandler struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(redisClient *redis.Client, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		redisClient: redisClient,
		logger:      logger,
	}
}

// ServeHTTP handles GET /v1/events/conversations/{conversationID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Only GET is supported."}, h.logger)
		return
	}

	conversationID := r.PathValue("conversationID")
	if conversationID == "" {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) == 4 && parts[0] == "v1" && parts[1] == "events" && parts[2] == "conversations" {
			conversationID = parts[3]
		}
	}
	if strings.TrimSpace(conversationID) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid path. Expected /v1/events/conversations/{conversationID}"}, h.logger)
		return
	}
	log := h.logger.With("conversation_id", conversationID)

	channel := events.Channel(conversationID)
	pubsub := h.redisClient.Subscribe(r.Context(), channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Error("Failed to close pubsub", "error", err)
		}
	}()
	if _, err := pubsub.Receive(r.Context()); err != nil {
		log.Error("Failed to subscribe", "error", err, "channel", channel)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Event stream unavailable."}, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	log.Info("SSE connection established", "remote_addr", r.RemoteAddr)

	msgChan := pubsub.Channel()
	keepalive := time.NewTicker(KeepaliveInterval)
	defer keepalive.Stop()

	h.sendSSE(w, "connected", map[string]any{
		"conversation_id": conversationID,
		"message":         "Connected to event stream",
	})

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected")
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			h.sendSSE(w, string(event.Type), event.Data)

		case <-keepalive.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				log.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
