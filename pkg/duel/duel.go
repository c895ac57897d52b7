// Package duel runs a timed, turn-based fight between two registered participants.
package duel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/confirm"
	"github.com/jwebster45206/infamy/pkg/progression"
	"github.com/jwebster45206/infamy/pkg/storage"
)

const (
	StartingHealth   = 1000
	RewardCurrency   = 200
	RewardExperience = 200

	DefaultActionTimeout = 10 * time.Second
	DefaultNarrationTTL  = 20 * time.Second

	// CooldownRate uses of the duel command are allowed per CooldownWindow per challenger.
	CooldownRate   = 1
	CooldownWindow = 180 * time.Second
)

var (
	// ErrIneligibleTarget is returned when a challenge fails its entry guard.
	ErrIneligibleTarget = errors.New("ineligible duel target")

	// ErrOnCooldown is returned when the challenger used the duel command too recently.
	ErrOnCooldown = errors.New("duel command on cooldown")
)

// State is a duel's lifecycle state.
type State int

const (
	Proposed State = iota
	Accepted
	InProgress
	Concluded
	Declined
	Abandoned
)

func (s State) String() string {
	switch s {
	case Proposed:
		return "proposed"
	case Accepted:
		return "accepted"
	case InProgress:
		return "in_progress"
	case Concluded:
		return "concluded"
	case Declined:
		return "declined"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Concluded || s == Declined || s == Abandoned
}

// Challenge is one duel request.
type Challenge struct {
	ConversationID string
	Challenger     chat.Participant
	Defender       chat.Participant
	// CooldownKey is the challenger's duel cooldown bucket. Defaults to CooldownKey(Challenger.ID).
	CooldownKey string
}

// CooldownKey returns the duel cooldown bucket for a challenger.
func CooldownKey(challengerID string) string {
	return "duel:" + challengerID
}

// Result describes how a duel ended.
type Result struct {
	ID               string
	State            State
	Rounds           int
	ChallengerHealth int
	DefenderHealth   int
	WinnerID         string
	LoserID          string
	Strikes          []Strike
	Reward           *progression.Outcome
}

// Store is the read side of the character store a duel needs.
type Store interface {
	LoadCharacter(ctx context.Context, id string) (*character.Sheet, error)
}

// Stats records concluded duels.
type Stats interface {
	RecordWin(ctx context.Context, id string) error
	RecordLoss(ctx context.Context, id string) error
}

// Rewarder commits the winner's reward.
type Rewarder interface {
	Award(ctx context.Context, participantID string, award progression.Award) (progression.Outcome, error)
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Ask(ctx context.Context, conversationID, responderID, prompt string) (confirm.Result, error)
}

// Options tunes a duel engine. Zero values take the package defaults.
type Options struct {
	StartingHealth int
	ActionTimeout  time.Duration
	NarrationTTL   time.Duration
}

// Engine runs duels. One Engine serves any number of concurrent duels; each
// Run owns its own health counters.
type Engine struct {
	store     Store
	stats     Stats
	cooldowns storage.Cooldowns
	rewards   Rewarder
	confirmer Confirmer
	input     chat.Input
	narrator  chat.Narrator
	dice      Dice
	logger    *slog.Logger
	opts      Options
	now       func() time.Time
}

// Deps bundles the collaborators of an Engine.
type Deps struct {
	Store     Store
	Stats     Stats
	Cooldowns storage.Cooldowns
	Rewards   Rewarder
	Confirmer Confirmer
	Input     chat.Input
	Narrator  chat.Narrator
	Dice      Dice
	Logger    *slog.Logger
}

// NewEngine creates a duel engine.
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.StartingHealth <= 0 {
		opts.StartingHealth = StartingHealth
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}
	if opts.NarrationTTL <= 0 {
		opts.NarrationTTL = DefaultNarrationTTL
	}
	if deps.Dice == nil {
		deps.Dice = RandomDice()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Engine{
		store:     deps.Store,
		stats:     deps.Stats,
		cooldowns: deps.Cooldowns,
		rewards:   deps.Rewards,
		confirmer: deps.Confirmer,
		input:     deps.Input,
		narrator:  deps.Narrator,
		dice:      deps.Dice,
		logger:    deps.Logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Run takes a challenge from proposal to a terminal state. Guard rejections
// are narrated and returned as a Declined result together with an error
// matching character.ErrNotRegistered, ErrIneligibleTarget or ErrOnCooldown.
func (e *Engine) Run(ctx context.Context, c Challenge) (*Result, error) {
	if c.CooldownKey == "" {
		c.CooldownKey = CooldownKey(c.Challenger.ID)
	}
	res := &Result{ID: uuid.NewString(), State: Proposed}
	log := e.logger.With("duel_id", res.ID, "conversation_id", c.ConversationID,
		"challenger_id", c.Challenger.ID, "defender_id", c.Defender.ID)

	if err := e.guard(ctx, c); err != nil {
		res.State = Declined
		log.Debug("Duel rejected", "error", err)
		return res, err
	}

	prompt := fmt.Sprintf("Do you %s accept this battle? Yes or No?", chat.Mention(c.Defender.ID))
	answer, err := e.confirmer.Ask(ctx, c.ConversationID, c.Defender.ID, prompt)
	if err != nil {
		res.State = Declined
		return res, fmt.Errorf("failed to confirm duel: %w", err)
	}
	switch answer {
	case confirm.Declined:
		res.State = Declined
		e.narrator.Narrate(ctx, c.ConversationID, fmt.Sprintf("%s declined the battle.", chat.Mention(c.Defender.ID)), 0)
		log.Info("Duel declined")
		return res, nil
	case confirm.TimedOut:
		res.State = Abandoned
		e.narrator.Narrate(ctx, c.ConversationID, fmt.Sprintf("%s didn't answer in time.", chat.Mention(c.Defender.ID)), 0)
		log.Info("Duel proposal timed out")
		return res, nil
	}

	res.State = Accepted
	log.Info("Duel accepted")
	return e.fight(ctx, c, res, log)
}

// guard applies the entry checks and consumes the challenger's cooldown last.
func (e *Engine) guard(ctx context.Context, c Challenge) error {
	conv := c.ConversationID
	if c.Challenger.Bot || c.Defender.Bot || c.Challenger.ID == c.Defender.ID {
		e.narrator.Narrate(ctx, conv, "You can't duel a bot or yourself.", 0)
		return fmt.Errorf("%w: bot or self", ErrIneligibleTarget)
	}

	challenger, err := e.store.LoadCharacter(ctx, c.Challenger.ID)
	if err != nil {
		if errors.Is(err, character.ErrNotRegistered) {
			e.narrator.Narrate(ctx, conv, fmt.Sprintf("%s, you need to register first.", chat.Mention(c.Challenger.ID)), 0)
		}
		return fmt.Errorf("failed to load challenger: %w", err)
	}
	defender, err := e.store.LoadCharacter(ctx, c.Defender.ID)
	if err != nil {
		if errors.Is(err, character.ErrNotRegistered) {
			e.narrator.Narrate(ctx, conv, fmt.Sprintf("%s is not registered.", chat.Mention(c.Defender.ID)), 0)
		}
		return fmt.Errorf("failed to load defender: %w", err)
	}
	if _, ok := defender.Equipped(); !ok {
		e.narrator.Narrate(ctx, conv, fmt.Sprintf("%s needs to equip an item first.", chat.Mention(c.Defender.ID)), 0)
		return fmt.Errorf("%w: defender has nothing equipped", ErrIneligibleTarget)
	}
	if _, ok := challenger.Equipped(); !ok {
		e.narrator.Narrate(ctx, conv, fmt.Sprintf("%s, you need to equip an item first.", chat.Mention(c.Challenger.ID)), 0)
		return fmt.Errorf("%w: challenger has nothing equipped", ErrIneligibleTarget)
	}

	wait, err := e.cooldowns.TakeCooldown(ctx, c.CooldownKey, CooldownRate, CooldownWindow)
	if err != nil {
		return fmt.Errorf("failed to check duel cooldown: %w", err)
	}
	if wait > 0 {
		e.narrator.Narrate(ctx, conv, fmt.Sprintf("%s, you can duel again in %s.", chat.Mention(c.Challenger.ID), wait.Round(time.Second)), 0)
		return ErrOnCooldown
	}
	return nil
}

func (e *Engine) fight(ctx context.Context, c Challenge, res *Result, log *slog.Logger) (*Result, error) {
	res.State = InProgress
	ids := [2]string{c.Challenger.ID, c.Defender.ID}
	health := [2]int{e.opts.StartingHealth, e.opts.StartingHealth}
	snapshot := func() {
		res.ChallengerHealth, res.DefenderHealth = health[0], health[1]
	}
	snapshot()

	for {
		res.Rounds++
		for actor := 0; actor < 2; actor++ {
			opponent := 1 - actor
			strike, err := e.turn(ctx, c.ConversationID, ids[actor], ids[opponent], health[opponent])
			// The win check below runs before the next wait, so a timeout can
			// only be seen while both sides are standing.
			if errors.Is(err, chat.ErrInputTimeout) && health[0] > 0 && health[1] > 0 {
				res.State = Abandoned
				e.narrator.Narrate(ctx, c.ConversationID, "You ran out of time!", e.opts.NarrationTTL)
				log.Info("Duel abandoned", "round", res.Rounds, "timed_out", ids[actor])
				return res, nil
			}
			if err != nil {
				return res, fmt.Errorf("duel round %d: %w", res.Rounds, err)
			}

			res.Strikes = append(res.Strikes, strike)
			health[opponent] = strike.HealthAfter
			snapshot()

			if health[opponent] <= 0 {
				return e.conclude(ctx, c, res, ids[actor], ids[opponent], strike.Weapon, log)
			}
		}
	}
}

// turn prompts one actor, waits for their choice and resolves it against the
// items both sides hold at that moment.
func (e *Engine) turn(ctx context.Context, conversationID, actorID, opponentID string, opponentHealth int) (Strike, error) {
	deadline := e.now().Add(e.opts.ActionTimeout)
	menu := fmt.Sprintf("%s, **1:** Attack, **2:** Barrage", chat.Mention(actorID))
	msg, err := chat.Prompt(ctx, e.input, conversationID, chat.All(chat.From(actorID), chat.OneOf("1", "2")), deadline, func() {
		e.narrator.Narrate(ctx, conversationID, menu, e.opts.NarrationTTL)
	})
	if err != nil {
		return Strike{}, err
	}
	action, _ := ParseAction(msg.Content)

	weapon, err := e.equipped(ctx, actorID)
	if err != nil {
		return Strike{}, err
	}
	shield, err := e.equipped(ctx, opponentID)
	if err != nil {
		return Strike{}, err
	}

	strike := Resolve(e.dice, weapon, shield, action, opponentHealth)
	e.narrator.Narrate(ctx, conversationID, describe(actorID, opponentID, strike), e.opts.NarrationTTL)
	return strike, nil
}

// equipped re-reads a participant's equipped item. An item unequipped
// mid-duel fights as bare hands.
func (e *Engine) equipped(ctx context.Context, id string) (character.Item, error) {
	sheet, err := e.store.LoadCharacter(ctx, id)
	if err != nil {
		return character.Item{}, fmt.Errorf("failed to load %s: %w", id, err)
	}
	if item, ok := sheet.Equipped(); ok {
		return *item, nil
	}
	return character.Item{Name: "Bare Hands"}, nil
}

func describe(actorID, opponentID string, s Strike) string {
	actor, opponent := chat.Mention(actorID), chat.Mention(opponentID)
	switch s.Chance {
	case Hit:
		return fmt.Sprintf("%s's %s with **%s** dealt %ddmg to %s\n%s has %dhp",
			actor, s.Action, s.Weapon.Name, s.Damage, opponent, opponent, s.HealthAfter)
	case Blocked:
		return fmt.Sprintf("%s was blocked!", actor)
	default:
		return fmt.Sprintf("%s missed!", actor)
	}
}

func (e *Engine) conclude(ctx context.Context, c Challenge, res *Result, winnerID, loserID string, weapon character.Item, log *slog.Logger) (*Result, error) {
	res.State = Concluded
	res.WinnerID, res.LoserID = winnerID, loserID
	log.Info("Duel concluded", "winner_id", winnerID, "rounds", res.Rounds)

	var errs []error
	won := fmt.Sprintf("{mention} won against %s using **%s**", chat.Mention(loserID), weapon.Name)
	outcome, err := e.rewards.Award(ctx, winnerID, progression.Award{
		Currency:   RewardCurrency,
		Experience: RewardExperience,
		LevelUp:    won + ", they leveled up to {level} and earned {currency}$",
		Plain:      won + ", they earned {xp}xp and {currency}$",
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to reward winner: %w", err))
		e.narrator.Narrate(ctx, c.ConversationID, fmt.Sprintf("%s won, but the reward could not be saved.", chat.Mention(winnerID)), 0)
	} else {
		res.Reward = &outcome
		e.narrator.Narrate(ctx, c.ConversationID, outcome.Narration(), 0)
	}

	if err := e.stats.RecordWin(ctx, winnerID); err != nil {
		errs = append(errs, fmt.Errorf("failed to record win: %w", err))
	}
	if err := e.stats.RecordLoss(ctx, loserID); err != nil {
		errs = append(errs, fmt.Errorf("failed to record loss: %w", err))
	}
	if err := e.cooldowns.ResetCooldown(ctx, c.CooldownKey); err != nil {
		errs = append(errs, fmt.Errorf("failed to reset duel cooldown: %w", err))
	}
	return res, errors.Join(errs...)
}
