// Package commands turns prefixed chat messages into RPG actions.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/infamy/internal/logger"
	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/confirm"
	"github.com/jwebster45206/infamy/pkg/duel"
	"github.com/jwebster45206/infamy/pkg/names"
	"github.com/jwebster45206/infamy/pkg/progression"
	"github.com/jwebster45206/infamy/pkg/storage"
)

// Catalog is the shop and quest data the commands read and extend.
type Catalog interface {
	Items(ctx context.Context) ([]character.Item, error)
	Item(ctx context.Context, name string) (character.Item, error)
	AddItem(ctx context.Context, item character.Item) error
	Affordable(ctx context.Context, budget, limit int) ([]character.Item, error)
	StarterItem(ctx context.Context, skills []character.Skill, maxLevel int, exclude []string) (character.Item, bool, error)
	AddQuest(ctx context.Context, text string) error
	RandomQuest(ctx context.Context) (string, error)
}

// Bucket selects what a cooldown is counted per.
type Bucket int

const (
	PerUser Bucket = iota
	PerConversation
)

// Cooldown limits a command to Rate uses per Per.
type Cooldown struct {
	Rate   int
	Per    time.Duration
	Bucket Bucket
	// Deferred cooldowns are taken by the command body instead of the dispatcher.
	Deferred bool
}

// Spec describes one command.
type Spec struct {
	Name     string
	Aliases  []string
	Usage    string
	Summary  string
	Register bool // caller must be registered
	Admin    bool
	// Background commands run alongside the caller's other commands, e.g. a
	// duel during which the challenger may still re-equip.
	Background bool
	Cooldown   *Cooldown
	Run        func(ctx context.Context, inv *Invocation) error
}

// Settings are the tunables of a dispatcher.
type Settings struct {
	Prefix         string
	AdminIDs       []string
	ChoiceTimeout  time.Duration
	QuestTimeout   time.Duration
	ConfirmTimeout time.Duration
	DuelOptions    duel.Options
}

// Deps are the collaborators shared by every command. Nil optional fields are
// built from the required ones.
type Deps struct {
	Store    storage.Storage
	Catalog  Catalog
	Input    chat.Input
	Narrator chat.Narrator
	Logger   *slog.Logger

	Progression *progression.Engine
	Confirm     *confirm.Prompter
	Duels       *duel.Engine
	Names       *names.Normalizer
	Dice        duel.Dice
}

// Dispatcher parses messages and runs the matching command.
type Dispatcher struct {
	Deps
	settings Settings
	commands map[string]*Spec
	ordered  []*Spec
}

// New creates a dispatcher with every RPG command registered.
func New(deps Deps, settings Settings) *Dispatcher {
	if settings.Prefix == "" {
		settings.Prefix = ">>"
	}
	if settings.ChoiceTimeout <= 0 {
		settings.ChoiceTimeout = 30 * time.Second
	}
	if settings.QuestTimeout <= 0 {
		settings.QuestTimeout = 15 * time.Second
	}
	if settings.ConfirmTimeout <= 0 {
		settings.ConfirmTimeout = confirm.DefaultTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Names == nil {
		deps.Names = names.NewNormalizer()
	}
	if deps.Dice == nil {
		deps.Dice = duel.RandomDice()
	}
	if deps.Progression == nil {
		deps.Progression = progression.NewEngine(deps.Store, deps.Logger)
	}
	if deps.Confirm == nil {
		deps.Confirm = confirm.NewPrompter(deps.Input, deps.Narrator, settings.ConfirmTimeout)
	}
	if deps.Duels == nil {
		deps.Duels = duel.NewEngine(duel.Deps{
			Store:     deps.Store,
			Stats:     deps.Store,
			Cooldowns: deps.Store,
			Rewards:   deps.Progression,
			Confirmer: deps.Confirm,
			Input:     deps.Input,
			Narrator:  deps.Narrator,
			Dice:      deps.Dice,
			Logger:    deps.Logger,
		}, settings.DuelOptions)
	}

	d := &Dispatcher{
		Deps:     deps,
		settings: settings,
		commands: make(map[string]*Spec),
	}
	for _, spec := range d.specs() {
		d.registerSpec(spec)
	}
	return d
}

func (d *Dispatcher) registerSpec(spec *Spec) {
	d.ordered = append(d.ordered, spec)
	d.commands[spec.Name] = spec
	for _, alias := range spec.Aliases {
		d.commands[alias] = spec
	}
}

// Prefix is the string every command message starts with.
func (d *Dispatcher) Prefix() string {
	return d.settings.Prefix
}

// IsCommand reports whether content addresses the bot.
func (d *Dispatcher) IsCommand(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), d.settings.Prefix)
}

// Lookup finds a command by name or alias, ignoring case.
func (d *Dispatcher) Lookup(name string) (*Spec, bool) {
	spec, ok := d.commands[strings.ToLower(name)]
	return spec, ok
}

// Exclusive reports whether content names a command that should hold the
// caller's session while it runs. Unknown and background commands do not.
func (d *Dispatcher) Exclusive(content string) bool {
	spec, _, ok := d.parse(content)
	return ok && !spec.Background
}

// parse splits a command line and finds the command it names.
func (d *Dispatcher) parse(content string) (*Spec, []string, bool) {
	if !d.IsCommand(content) {
		return nil, nil, false
	}
	args := SplitArgs(strings.TrimPrefix(strings.TrimSpace(content), d.settings.Prefix))
	if len(args) == 0 {
		return nil, nil, false
	}
	spec, ok := d.Lookup(args[0])
	return spec, args, ok
}

// Dispatch runs the command in msg. Messages without the prefix, from bots or
// naming unknown commands are ignored. Failures are narrated to the
// conversation and returned for logging.
func (d *Dispatcher) Dispatch(ctx context.Context, msg chat.Message) error {
	if msg.AuthorBot {
		return nil
	}
	spec, args, ok := d.parse(msg.Content)
	if !ok {
		return nil
	}

	inv := &Invocation{
		Message: msg,
		Author:  chat.Participant{ID: msg.AuthorID, Bot: msg.AuthorBot},
		Name:    strings.ToLower(args[0]),
		Args:    args[1:],
		Spec:    spec,
		d:       d,
		logger:  logger.WithParticipant(d.Logger, msg.ConversationID, msg.AuthorID).With("command", spec.Name),
	}

	if spec.Admin && !slices.Contains(d.settings.AdminIDs, msg.AuthorID) {
		inv.Say(ctx, "You don't have permission to do that.")
		return nil
	}

	if spec.Register {
		sheet, err := d.Store.LoadCharacter(ctx, msg.AuthorID)
		if errors.Is(err, character.ErrNotRegistered) {
			inv.Sayf(ctx, "You need to register first, type `%sregister`.", d.settings.Prefix)
			return nil
		}
		if err != nil {
			return d.fail(ctx, inv, err)
		}
		inv.Sheet = sheet
	}

	if cd := spec.Cooldown; cd != nil && !cd.Deferred {
		wait, err := d.Store.TakeCooldown(ctx, inv.CooldownKey(), cd.Rate, cd.Per)
		if err != nil {
			return d.fail(ctx, inv, err)
		}
		if wait > 0 {
			inv.Sayf(ctx, "%s, slow down! You can use `%s%s` again in %s.",
				chat.Mention(msg.AuthorID), d.settings.Prefix, spec.Name, wait.Round(time.Second))
			return nil
		}
	}

	inv.logger.Debug("Running command", "args", inv.Args)
	start := time.Now()
	if err := spec.Run(ctx, inv); err != nil {
		return d.fail(ctx, inv, err)
	}
	inv.logger.Info("Command finished", "duration", time.Since(start))
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, inv *Invocation, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		inv.logger.Info("Command interrupted", "error", err)
	case errors.Is(err, progression.ErrCommitFailed):
		inv.logger.Warn("Command lost a write race", "error", err)
		inv.Say(ctx, "Your character was busy with something else, try again.")
	default:
		inv.logger.Error("Command failed", "error", err)
		inv.Say(ctx, "Something went wrong, try again later.")
	}
	return fmt.Errorf("%s: %w", inv.Spec.Name, err)
}

// Invocation is one run of a command.
type Invocation struct {
	Message chat.Message
	Author  chat.Participant
	Name    string
	Args    []string
	Spec    *Spec
	// Sheet is the caller's sheet as loaded before the command ran; nil unless Spec.Register.
	Sheet *character.Sheet

	d      *Dispatcher
	logger *slog.Logger
}

// CooldownKey is the bucket this invocation counts against.
func (inv *Invocation) CooldownKey() string {
	bucket := inv.Message.AuthorID
	if inv.Spec.Cooldown != nil && inv.Spec.Cooldown.Bucket == PerConversation {
		bucket = inv.Message.ConversationID
	}
	return inv.Spec.Name + ":" + bucket
}

// Rest joins the arguments from index i.
func (inv *Invocation) Rest(i int) string {
	if i >= len(inv.Args) {
		return ""
	}
	return strings.Join(inv.Args[i:], " ")
}

// Say narrates a permanent line to the invocation's conversation.
func (inv *Invocation) Say(ctx context.Context, text string) {
	inv.d.Narrator.Narrate(ctx, inv.Message.ConversationID, text, 0)
}

// Sayf is Say with formatting.
func (inv *Invocation) Sayf(ctx context.Context, format string, args ...any) {
	inv.Say(ctx, fmt.Sprintf(format, args...))
}

// Confirm asks the caller a yes/no question.
func (inv *Invocation) Confirm(ctx context.Context, prompt string) (confirm.Result, error) {
	return inv.d.Confirm.Ask(ctx, inv.Message.ConversationID, inv.Author.ID, prompt)
}

// Declined narrates a refused or unanswered confirmation.
func (inv *Invocation) Declined(ctx context.Context, res confirm.Result, text string) {
	if res == confirm.TimedOut {
		inv.Sayf(ctx, "%s, you didn't answer in time.", chat.Mention(inv.Author.ID))
		return
	}
	inv.Say(ctx, text)
}

// Prompt narrates text and waits for the caller's next message matching pred.
func (inv *Invocation) Prompt(ctx context.Context, text string, pred chat.Predicate, timeout time.Duration) (chat.Message, error) {
	return chat.Prompt(ctx, inv.d.Input, inv.Message.ConversationID, chat.All(chat.From(inv.Author.ID), pred), time.Now().Add(timeout), func() {
		inv.Say(ctx, text)
	})
}

// Target resolves an optional mention argument, defaulting to the caller.
func (inv *Invocation) Target(ctx context.Context, arg string) (chat.Participant, bool) {
	if arg == "" {
		return inv.Author, true
	}
	id, ok := chat.ParseMention(arg)
	if !ok {
		return chat.Participant{}, false
	}
	p, err := inv.d.Store.LookupParticipant(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrUnknownParticipant) {
			inv.logger.Warn("Participant lookup failed", "target_id", id, "error", err)
		}
		return chat.Participant{ID: id}, true
	}
	return p, true
}

// choose prompts the caller and re-asks until parse accepts an answer or the
// shared deadline passes.
func choose[T any](ctx context.Context, inv *Invocation, prompt string, parse func(string) (T, error), retry string) (T, error) {
	var zero T
	deadline := time.Now().Add(inv.d.settings.ChoiceTimeout)
	text := prompt
	for {
		msg, err := chat.Prompt(ctx, inv.d.Input, inv.Message.ConversationID, chat.From(inv.Author.ID), deadline, func() {
			inv.Say(ctx, text)
		})
		if err != nil {
			return zero, err
		}
		v, err := parse(msg.Content)
		if err == nil {
			return v, nil
		}
		text = retry
	}
}

// promptErr narrates an expired prompt and swallows the timeout.
func promptErr(ctx context.Context, inv *Invocation, err error) error {
	if errors.Is(err, chat.ErrInputTimeout) {
		inv.Sayf(ctx, "%s, you took too long to answer.", chat.Mention(inv.Author.ID))
		return nil
	}
	return err
}
