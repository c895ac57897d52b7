package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
)

// ErrUnknownParticipant is returned when a participant id has never been seen.
var ErrUnknownParticipant = errors.New("unknown participant")

// Characters persists character sheets. UpdateCharacter is an atomic
// read-modify-write of one participant's sheet: fn runs against the current
// sheet and its changes are written only if no other write happened in between,
// otherwise character.ErrRecordConflict is returned. An error from fn aborts
// the update and is returned unchanged.
type Characters interface {
	CreateCharacter(ctx context.Context, sheet *character.Sheet) error
	LoadCharacter(ctx context.Context, id string) (*character.Sheet, error)
	UpdateCharacter(ctx context.Context, id string, fn func(*character.Sheet) error) (*character.Sheet, error)
	TopCharacters(ctx context.Context, limit int) ([]*character.Sheet, error)
}

// Cooldowns rate-limits commands with fixed windows. TakeCooldown consumes one
// use from the bucket and returns zero, or returns how long until the bucket
// frees up when rate uses were already spent in the current window.
type Cooldowns interface {
	TakeCooldown(ctx context.Context, key string, rate int, per time.Duration) (time.Duration, error)
	ResetCooldown(ctx context.Context, key string) error
}

// DuelRecord is a participant's duel history.
type DuelRecord struct {
	Wins   int `json:"wins" redis:"wins"`
	Losses int `json:"losses" redis:"losses"`
}

// Standing is one leaderboard row.
type Standing struct {
	ParticipantID string `json:"participant_id"`
	Score         int    `json:"score"`
}

// DuelStats is the leaderboard side effect of concluded duels.
type DuelStats interface {
	RecordWin(ctx context.Context, id string) error
	RecordLoss(ctx context.Context, id string) error
	DuelRecord(ctx context.Context, id string) (DuelRecord, error)
	TopWinners(ctx context.Context, limit int) ([]Standing, error)
}

// Participants remembers who has been seen in chat so mentions can be resolved.
type Participants interface {
	RememberParticipant(ctx context.Context, p chat.Participant) error
	LookupParticipant(ctx context.Context, id string) (chat.Participant, error)
}

// Storage defines a unified interface for all hot game state
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	Characters
	Cooldowns
	DuelStats
	Participants
}
