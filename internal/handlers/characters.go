package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/storage"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// CharacterResponse is a sheet together with its duel record.
type CharacterResponse struct {
	*character.Sheet
	Duels storage.DuelRecord `json:"duels"`
}

// LeaderboardEntry is one row of either leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	Class         string `json:"class,omitempty"`
	Level         int    `json:"level,omitempty"`
	Wins          int    `json:"wins,omitempty"`
}

// CharactersHandler serves read-only character data.
type CharactersHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewCharactersHandler(storage storage.Storage, logger *slog.Logger) *CharactersHandler {
	return &CharactersHandler{storage: storage, logger: logger}
}

// Character handles GET /v1/characters/{id}
func (h *CharactersHandler) Character(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sheet, err := h.storage.LoadCharacter(r.Context(), id)
	if errors.Is(err, character.ErrNotRegistered) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Character not found"}, h.logger)
		return
	}
	if err != nil {
		h.logger.Error("Failed to load character", "participant_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load character"}, h.logger)
		return
	}
	record, err := h.storage.DuelRecord(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load duel record", "participant_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load character"}, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, CharacterResponse{Sheet: sheet, Duels: record}, h.logger)
}

// Leaderboard handles GET /v1/leaderboard?by=level|wins&limit=N
func (h *CharactersHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"}, h.logger)
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	entries := []LeaderboardEntry{}
	switch by := r.URL.Query().Get("by"); by {
	case "", "level":
		sheets, err := h.storage.TopCharacters(r.Context(), limit)
		if err != nil {
			h.logger.Error("Failed to load level leaderboard", "error", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load leaderboard"}, h.logger)
			return
		}
		for i, s := range sheets {
			entries = append(entries, LeaderboardEntry{Rank: i + 1, ParticipantID: s.ID, Class: s.Class, Level: s.Level})
		}
	case "wins":
		standings, err := h.storage.TopWinners(r.Context(), limit)
		if err != nil {
			h.logger.Error("Failed to load wins leaderboard", "error", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load leaderboard"}, h.logger)
			return
		}
		for i, st := range standings {
			entries = append(entries, LeaderboardEntry{Rank: i + 1, ParticipantID: st.ParticipantID, Wins: st.Score})
		}
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "by must be level or wins"}, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, entries, h.logger)
}
