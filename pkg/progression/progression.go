// Package progression holds the leveling rules and commits rewards to the
// character store.
package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
)

// LevelStep is the experience needed per level: reaching level n+1 from n takes n*LevelStep.
const LevelStep = 50

// ErrCommitFailed is returned when a reward could not be written after a retry.
var ErrCommitFailed = errors.New("failed to commit progression")

// ExperienceToNextLevel returns how much experience a character still needs.
func ExperienceToNextLevel(level, xp int) int {
	return level*LevelStep - xp
}

// MasteryToNextLevel is ExperienceToNextLevel for a mastery record.
func MasteryToNextLevel(level, xp int) int {
	return level*LevelStep - xp
}

// ApplyExperience adds amount to xp and rolls over as many levels as it covers.
func ApplyExperience(level, xp, amount int) (int, int) {
	xp += amount
	for xp >= level*LevelStep {
		xp -= level * LevelStep
		level++
	}
	return level, xp
}

// Award describes one activity's reward. LevelUp and Plain are narration
// templates; the one matching the outcome is rendered by Outcome.Narration.
// Templates may reference {mention}, {currency}, {xp}, {level} and {skill}.
type Award struct {
	Currency   int
	Experience int
	LevelUp    string
	Plain      string
}

// Outcome is the result of a committed award.
type Outcome struct {
	ParticipantID string
	Skill         character.Skill
	Award         Award
	LevelBefore   int
	LevelAfter    int
	Sheet         *character.Sheet
}

// LeveledUp reports whether the award crossed at least one level boundary.
func (o Outcome) LeveledUp() bool {
	return o.LevelAfter > o.LevelBefore
}

// Template returns the raw template selected for this outcome.
func (o Outcome) Template() string {
	if o.LeveledUp() {
		return o.Award.LevelUp
	}
	return o.Award.Plain
}

// Narration renders the selected template.
func (o Outcome) Narration() string {
	r := strings.NewReplacer(
		"{mention}", chat.Mention(o.ParticipantID),
		"{currency}", strconv.Itoa(o.Award.Currency),
		"{xp}", strconv.Itoa(o.Award.Experience),
		"{level}", strconv.Itoa(o.LevelAfter),
		"{skill}", string(o.Skill),
	)
	return r.Replace(o.Template())
}

// Store is the slice of the character store the engine writes through.
type Store interface {
	UpdateCharacter(ctx context.Context, id string, fn func(*character.Sheet) error) (*character.Sheet, error)
}

// Engine applies rewards and charges atomically per participant.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// NewEngine creates a progression engine over store.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// Award credits the currency and, when non-zero, applies the experience to the
// character level.
func (e *Engine) Award(ctx context.Context, participantID string, award Award) (Outcome, error) {
	out := Outcome{ParticipantID: participantID, Award: award}
	sheet, err := e.commit(ctx, participantID, func(s *character.Sheet) error {
		out.LevelBefore = s.Level
		s.Credit(award.Currency)
		if award.Experience != 0 {
			s.Level, s.Experience = ApplyExperience(s.Level, s.Experience, award.Experience)
		}
		out.LevelAfter = s.Level
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out.Sheet = sheet
	return out, nil
}

// AwardMastery applies the experience to the participant's mastery of skill and
// credits the currency to the character. The mastery record must already exist.
func (e *Engine) AwardMastery(ctx context.Context, participantID string, skill character.Skill, award Award) (Outcome, error) {
	out := Outcome{ParticipantID: participantID, Skill: skill, Award: award}
	sheet, err := e.commit(ctx, participantID, func(s *character.Sheet) error {
		m, ok := s.Mastery(skill)
		if !ok {
			return fmt.Errorf("no %s mastery: %w", skill, character.ErrNotRegistered)
		}
		out.LevelBefore = m.Level
		s.Credit(award.Currency)
		if award.Experience != 0 {
			m.Level, m.Experience = ApplyExperience(m.Level, m.Experience, award.Experience)
		}
		out.LevelAfter = m.Level
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out.Sheet = sheet
	return out, nil
}

// Spend debits amount from the participant, failing with
// character.ErrInsufficientFunds without writing anything.
func (e *Engine) Spend(ctx context.Context, participantID string, amount int) (*character.Sheet, error) {
	return e.commit(ctx, participantID, func(s *character.Sheet) error {
		return s.Debit(amount)
	})
}

// Update applies fn to the participant's sheet under the same retry policy
// as awards. Errors returned by fn abort the update and are passed through.
func (e *Engine) Update(ctx context.Context, participantID string, fn func(*character.Sheet) error) (*character.Sheet, error) {
	return e.commit(ctx, participantID, fn)
}

// commit runs fn as one atomic update, retrying once on a write conflict.
func (e *Engine) commit(ctx context.Context, participantID string, fn func(*character.Sheet) error) (*character.Sheet, error) {
	sheet, err := e.store.UpdateCharacter(ctx, participantID, fn)
	if errors.Is(err, character.ErrRecordConflict) {
		e.logger.Debug("Retrying progression after write conflict", "participant_id", participantID)
		sheet, err = e.store.UpdateCharacter(ctx, participantID, fn)
		if errors.Is(err, character.ErrRecordConflict) {
			e.logger.Warn("Progression write conflicted twice", "participant_id", participantID)
			return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
		}
	}
	if err != nil {
		return nil, err
	}
	return sheet, nil
}
