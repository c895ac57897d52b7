package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/queue"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageAccepted is returned once a message is queued for the worker.
type MessageAccepted struct {
	RequestID string `json:"request_id"`
	MessageID string `json:"message_id"`
}

// Enqueuer hands inbound messages to the worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, req *queue.Request) error
}

// MessagesHandler accepts chat messages from clients.
type MessagesHandler struct {
	queue  Enqueuer
	logger *slog.Logger
}

func NewMessagesHandler(queue Enqueuer, logger *slog.Logger) *MessagesHandler {
	return &MessagesHandler{queue: queue, logger: logger}
}

// ServeHTTP handles POST /v1/messages
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Only POST is supported."})
		return
	}

	var mr chat.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&mr); err != nil {
		h.logger.Warn("Invalid message body", "error", err)
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body."})
		return
	}
	if err := mr.Validate(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	req := queue.NewMessageRequest(mr)
	if err := h.queue.Enqueue(r.Context(), req); err != nil {
		h.logger.Error("Failed to enqueue message", "error", err, "conversation_id", mr.ConversationID)
		h.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Failed to queue message. Please try again."})
		return
	}

	h.logger.Debug("Message queued",
		"request_id", req.RequestID,
		"conversation_id", mr.ConversationID,
		"author_id", mr.AuthorID)
	h.writeJSON(w, http.StatusAccepted, MessageAccepted{RequestID: req.RequestID, MessageID: req.Message.ID})
}

func (h *MessagesHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	writeJSON(w, status, body, h.logger)
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
