package duel

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/infamy/internal/input"
	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/confirm"
	"github.com/jwebster45206/infamy/pkg/progression"
	"github.com/jwebster45206/infamy/pkg/storage"
)

const conv = "arena"

type fixture struct {
	store    *storage.MockStorage
	input    *chat.MockInput
	narrator *chat.MockNarrator
	dice     *ScriptedDice
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    storage.NewMockStorage(),
		input:    chat.NewMockInput(),
		narrator: chat.NewMockNarrator(),
		dice:     NewScriptedDice(),
	}
	f.register(t, "alice", character.Item{ID: "a1", Name: "Storm Blade", Type: character.Sword, Damage: 10000, Defense: 50}, true)
	f.register(t, "bob", character.Item{ID: "b1", Name: "Oak Staff", Type: character.Staff, Damage: 100, Defense: 50}, true)

	f.engine = NewEngine(Deps{
		Store:     f.store,
		Stats:     f.store,
		Cooldowns: f.store,
		Rewards:   progression.NewEngine(f.store, nil),
		Confirmer: confirm.NewPrompter(f.input, f.narrator, confirm.DefaultTimeout),
		Input:     f.input,
		Narrator:  f.narrator,
		Dice:      f.dice,
	}, Options{})
	return f
}

func (f *fixture) register(t *testing.T, id string, item character.Item, equip bool) {
	t.Helper()
	sheet := character.NewSheet(id, "Duelist", character.Swordsmanship)
	require.NoError(t, sheet.AddItem(item))
	if equip {
		sheet.EquippedItemID = item.ID
	}
	require.NoError(t, f.store.CreateCharacter(context.Background(), sheet))
}

func challenge() Challenge {
	return Challenge{
		ConversationID: conv,
		Challenger:     chat.Participant{ID: "alice"},
		Defender:       chat.Participant{ID: "bob"},
	}
}

func (f *fixture) sheet(t *testing.T, id string) *character.Sheet {
	t.Helper()
	s, err := f.store.LoadCharacter(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) assertNoRewards(t *testing.T) {
	t.Helper()
	for _, id := range []string{"alice", "bob"} {
		s := f.sheet(t, id)
		assert.Equal(t, character.StartingCurrency, s.Currency, id)
		assert.Equal(t, 1, s.Level, id)
		assert.Equal(t, 0, s.Experience, id)
		rec, err := f.store.DuelRecord(context.Background(), id)
		require.NoError(t, err)
		assert.Zero(t, rec, id)
	}
}

// boundsDice records the ranges Resolve asks for.
type boundsDice struct {
	ranges [][2]int
	chance Chance
}

func (d *boundsDice) IntRange(lo, hi int) int {
	d.ranges = append(d.ranges, [2]int{lo, hi})
	return hi
}

func (d *boundsDice) Chance() Chance { return d.chance }

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		weapon     character.Item
		shield     character.Item
		action     Action
		chance     Chance
		wantRanges [][2]int
		wantHealth int
	}{
		{
			name:       "attack hit",
			weapon:     character.Item{Damage: 100},
			shield:     character.Item{Defense: 50},
			action:     Attack,
			chance:     Hit,
			wantRanges: [][2]int{{1, 10}, {1, 10}},
			wantHealth: 990,
		},
		{
			name:       "barrage clamps small upper bounds",
			weapon:     character.Item{Damage: 50},
			shield:     character.Item{Defense: 20},
			action:     Barrage,
			chance:     Hit,
			wantRanges: [][2]int{{10, 10}, {10, 10}},
			wantHealth: 990,
		},
		{
			name:       "attack with zero stats",
			weapon:     character.Item{},
			shield:     character.Item{},
			action:     Attack,
			chance:     Hit,
			wantRanges: [][2]int{{1, 1}, {1, 1}},
			wantHealth: 999,
		},
		{
			name:       "miss leaves health alone",
			weapon:     character.Item{Damage: 200},
			shield:     character.Item{Defense: 10},
			action:     Attack,
			chance:     Miss,
			wantRanges: [][2]int{{1, 20}, {1, 2}},
			wantHealth: 1000,
		},
		{
			name:       "blocked leaves health alone",
			weapon:     character.Item{Damage: 300},
			shield:     character.Item{Defense: 500},
			action:     Barrage,
			chance:     Blocked,
			wantRanges: [][2]int{{10, 30}, {10, 100}},
			wantHealth: 1000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &boundsDice{chance: tt.chance}
			s := Resolve(d, tt.weapon, tt.shield, tt.action, 1000)
			assert.Equal(t, tt.wantRanges, d.ranges)
			assert.Equal(t, tt.wantHealth, s.HealthAfter)
			assert.Equal(t, tt.chance == Hit, s.Landed())
		})
	}
}

func TestResolve_ComparisonDoesNotGateDamage(t *testing.T) {
	dice := NewScriptedDice().Strike(3, 9, Hit)
	s := Resolve(dice, character.Item{Damage: 100}, character.Item{Defense: 50}, Attack, 1000)
	assert.False(t, s.Overpowered)
	assert.Equal(t, 997, s.HealthAfter)

	dice.Strike(9, 3, Miss)
	s = Resolve(dice, character.Item{Damage: 100}, character.Item{Defense: 50}, Attack, 1000)
	assert.True(t, s.Overpowered)
	assert.Equal(t, 1000, s.HealthAfter)
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("1")
	assert.True(t, ok)
	assert.Equal(t, Attack, a)
	a, ok = ParseAction("2")
	assert.True(t, ok)
	assert.Equal(t, Barrage, a)
	_, ok = ParseAction("3")
	assert.False(t, ok)
}

func TestEngine_Guard(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, f *fixture) Challenge
		wantErr  error
		wantText string
		wantUses int
	}{
		{
			name: "bot defender",
			setup: func(t *testing.T, f *fixture) Challenge {
				c := challenge()
				c.Defender.Bot = true
				return c
			},
			wantErr:  ErrIneligibleTarget,
			wantText: "You can't duel a bot or yourself.",
		},
		{
			name: "self duel",
			setup: func(t *testing.T, f *fixture) Challenge {
				c := challenge()
				c.Defender = c.Challenger
				return c
			},
			wantErr:  ErrIneligibleTarget,
			wantText: "You can't duel a bot or yourself.",
		},
		{
			name: "unregistered challenger",
			setup: func(t *testing.T, f *fixture) Challenge {
				c := challenge()
				c.Challenger.ID = "carol"
				return c
			},
			wantErr:  character.ErrNotRegistered,
			wantText: "<@carol>, you need to register first.",
		},
		{
			name: "unregistered defender",
			setup: func(t *testing.T, f *fixture) Challenge {
				c := challenge()
				c.Defender.ID = "carol"
				return c
			},
			wantErr:  character.ErrNotRegistered,
			wantText: "<@carol> is not registered.",
		},
		{
			name: "defender not equipped",
			setup: func(t *testing.T, f *fixture) Challenge {
				f.register(t, "carol", character.Item{ID: "c1", Name: "Ring"}, false)
				c := challenge()
				c.Defender.ID = "carol"
				return c
			},
			wantErr:  ErrIneligibleTarget,
			wantText: "<@carol> needs to equip an item first.",
		},
		{
			name: "challenger not equipped",
			setup: func(t *testing.T, f *fixture) Challenge {
				f.register(t, "carol", character.Item{ID: "c1", Name: "Ring"}, false)
				c := challenge()
				c.Challenger.ID = "carol"
				return c
			},
			wantErr:  ErrIneligibleTarget,
			wantText: "<@carol>, you need to equip an item first.",
		},
		{
			name: "challenger on cooldown",
			setup: func(t *testing.T, f *fixture) Challenge {
				_, err := f.store.TakeCooldown(context.Background(), CooldownKey("alice"), CooldownRate, CooldownWindow)
				require.NoError(t, err)
				return challenge()
			},
			wantErr:  ErrOnCooldown,
			wantText: "<@alice>, you can duel again in",
			wantUses: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := tt.setup(t, f)

			res, err := f.engine.Run(context.Background(), c)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, Declined, res.State)
			assert.Contains(t, f.narrator.Last(), tt.wantText)
			assert.Equal(t, 0, f.input.Awaits(), "no confirmation may be issued")
			assert.Equal(t, tt.wantUses, f.store.CooldownUses(CooldownKey(c.Challenger.ID)))
			f.assertNoRewards(t)
		})
	}
}

func TestEngine_Proposal(t *testing.T) {
	tests := []struct {
		name      string
		script    func(in *chat.MockInput)
		wantState State
		wantText  string
	}{
		{
			name:      "declined",
			script:    func(in *chat.MockInput) { in.Say(conv, "bob", "No") },
			wantState: Declined,
			wantText:  "<@bob> declined the battle.",
		},
		{
			name:      "challenger cannot accept for the defender",
			script:    func(in *chat.MockInput) { in.Say(conv, "alice", "yes").Timeout() },
			wantState: Abandoned,
			wantText:  "<@bob> didn't answer in time.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.script(f.input)

			res, err := f.engine.Run(context.Background(), challenge())
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, res.State)
			assert.Equal(t, tt.wantText, f.narrator.Last())
			assert.Equal(t, 1, f.store.CooldownUses(CooldownKey("alice")), "cooldown stays consumed")
			f.assertNoRewards(t)
		})
	}
}

func TestEngine_OneHitWin(t *testing.T) {
	f := newFixture(t)
	f.input.Say(conv, "bob", "yes").Say(conv, "alice", "1")
	f.dice.Strike(StartingHealth, 1, Hit)

	res, err := f.engine.Run(context.Background(), challenge())
	require.NoError(t, err)
	assert.Equal(t, Concluded, res.State)
	assert.Equal(t, "alice", res.WinnerID)
	assert.Equal(t, "bob", res.LoserID)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, StartingHealth, res.ChallengerHealth)
	assert.Equal(t, 0, res.DefenderHealth)

	alice := f.sheet(t, "alice")
	assert.Equal(t, character.StartingCurrency+RewardCurrency, alice.Currency)
	assert.Equal(t, 3, alice.Level)
	assert.Equal(t, 50, alice.Experience)

	bob := f.sheet(t, "bob")
	assert.Equal(t, character.StartingCurrency, bob.Currency)
	assert.Equal(t, 1, bob.Level)

	rec, _ := f.store.DuelRecord(context.Background(), "alice")
	assert.Equal(t, storage.DuelRecord{Wins: 1}, rec)
	rec, _ = f.store.DuelRecord(context.Background(), "bob")
	assert.Equal(t, storage.DuelRecord{Losses: 1}, rec)

	assert.Equal(t, 0, f.store.CooldownUses(CooldownKey("alice")))
	require.NotNil(t, res.Reward)
	assert.True(t, res.Reward.LeveledUp())
	assert.Equal(t, "<@alice> won against <@bob> using **Storm Blade**, they leveled up to 3 and earned 200$", f.narrator.Last())
}

func TestEngine_DefenderWinsResetsChallengerCooldown(t *testing.T) {
	f := newFixture(t)
	f.input.Say(conv, "bob", "yes").Say(conv, "alice", "1").Say(conv, "bob", "2")
	f.dice.Strike(5, 1, Miss).Strike(2000, 1, Hit)

	res, err := f.engine.Run(context.Background(), challenge())
	require.NoError(t, err)
	assert.Equal(t, Concluded, res.State)
	assert.Equal(t, "bob", res.WinnerID)
	assert.Equal(t, Barrage, res.Strikes[1].Action)
	assert.Equal(t, character.StartingCurrency+RewardCurrency, f.sheet(t, "bob").Currency)
	assert.Equal(t, character.StartingCurrency, f.sheet(t, "alice").Currency)
	assert.Equal(t, 0, f.store.CooldownUses(CooldownKey("alice")))
}

func TestEngine_Abandoned(t *testing.T) {
	f := newFixture(t)
	f.input.Say(conv, "bob", "yes").Say(conv, "alice", "1").Say(conv, "alice", "1").Timeout()
	f.dice.Strike(10, 1, Hit)

	res, err := f.engine.Run(context.Background(), challenge())
	require.NoError(t, err)
	assert.Equal(t, Abandoned, res.State)
	assert.Equal(t, 990, res.DefenderHealth)
	assert.Empty(t, res.WinnerID)
	assert.Equal(t, "You ran out of time!", f.narrator.Last())
	assert.Equal(t, 1, f.store.CooldownUses(CooldownKey("alice")))
	f.assertNoRewards(t)
}

func TestEngine_TimeoutAfterWinIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.input.Say(conv, "bob", "yes").Say(conv, "alice", "2").Timeout()
	f.dice.Strike(5000, 10, Hit)

	res, err := f.engine.Run(context.Background(), challenge())
	require.NoError(t, err)
	assert.Equal(t, Concluded, res.State)
	assert.Equal(t, 1, f.input.Remaining(), "no wait may follow the winning strike")
	assert.NotContains(t, f.narrator.Texts(), "You ran out of time!")
}

func TestEngine_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The defender's own duel cooldown must survive the challenger's win.
	_, err := f.store.TakeCooldown(ctx, CooldownKey("bob"), CooldownRate, CooldownWindow)
	require.NoError(t, err)

	f.input.Say(conv, "bob", "yes").
		Say(conv, "alice", "1").Say(conv, "bob", "1").
		Say(conv, "alice", "1").Say(conv, "someone", "2").Say(conv, "bob", "2").
		Say(conv, "alice", "1").Say(conv, "bob", "1").
		Say(conv, "alice", "2")
	f.dice.
		Strike(10, 5, Hit).Strike(5, 3, Miss).
		Strike(10, 8, Hit).Strike(10, 10, Blocked).
		Strike(10, 20, Hit).Strike(7, 1, Miss).
		Strike(970, 10, Hit)

	res, err := f.engine.Run(ctx, challenge())
	require.NoError(t, err)

	require.Len(t, res.Strikes, 7)
	assert.Equal(t, 990, res.Strikes[0].HealthAfter)
	assert.Equal(t, 980, res.Strikes[2].HealthAfter)
	assert.Equal(t, 970, res.Strikes[4].HealthAfter, "three 10 damage hits after round 3")
	assert.Equal(t, 0, res.Strikes[6].HealthAfter)

	assert.Equal(t, Concluded, res.State)
	assert.Equal(t, 4, res.Rounds)
	assert.Equal(t, "alice", res.WinnerID)
	assert.Equal(t, StartingHealth, res.ChallengerHealth)

	alice := f.sheet(t, "alice")
	assert.Equal(t, character.StartingCurrency+RewardCurrency, alice.Currency)
	level, xp := progression.ApplyExperience(1, 0, RewardExperience)
	assert.Equal(t, level, alice.Level)
	assert.Equal(t, xp, alice.Experience)

	assert.Equal(t, 0, f.store.CooldownUses(CooldownKey("alice")))
	assert.Equal(t, 1, f.store.CooldownUses(CooldownKey("bob")))

	prompts := 0
	for _, line := range f.narrator.Lines() {
		if line.TTL == DefaultNarrationTTL {
			prompts++
		}
	}
	assert.Equal(t, 14, prompts, "every menu and strike line is ephemeral")
}

func TestEngine_ContextCanceled(t *testing.T) {
	f := newFixture(t)
	f.input.Say(conv, "bob", "yes").Say(conv, "alice", "1")

	ctx, cancel := context.WithCancel(context.Background())
	confirmOnly := &cancelAfterConfirm{Input: f.input, cancel: cancel}
	f.engine.input = confirmOnly

	res, err := f.engine.Run(ctx, challenge())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, InProgress, res.State)
	f.assertNoRewards(t)
}

// cancelAfterConfirm cancels the duel's context right before the first action wait.
type cancelAfterConfirm struct {
	chat.Input
	cancel context.CancelFunc
}

func (c *cancelAfterConfirm) Await(ctx context.Context, conversationID string, match chat.Predicate, deadline time.Time) (chat.Message, error) {
	c.cancel()
	return c.Input.Await(ctx, conversationID, match, deadline)
}

func TestEngine_RewardCommitFails(t *testing.T) {
	f := newFixture(t)
	f.input.Say(conv, "bob", "yes").Say(conv, "alice", "1")
	f.dice.Strike(StartingHealth, 1, Hit)
	f.store.FailNextUpdates(2)

	res, err := f.engine.Run(context.Background(), challenge())
	require.ErrorIs(t, err, progression.ErrCommitFailed)
	assert.Equal(t, Concluded, res.State)
	assert.Equal(t, "alice", res.WinnerID)
	assert.Nil(t, res.Reward)
	assert.Equal(t, "<@alice> won, but the reward could not be saved.", f.narrator.Last())
	assert.Equal(t, character.StartingCurrency, f.sheet(t, "alice").Currency)

	rec, _ := f.store.DuelRecord(context.Background(), "alice")
	assert.Equal(t, storage.DuelRecord{Wins: 1}, rec)
	rec, _ = f.store.DuelRecord(context.Background(), "bob")
	assert.Equal(t, storage.DuelRecord{Losses: 1}, rec)
	assert.Equal(t, 0, f.store.CooldownUses(CooldownKey("alice")), "cooldown is reset even without a reward")
}

// eagerNarrator records narration and answers prompts the instant they are narrated.
type eagerNarrator struct {
	chat.MockNarrator
	hub *input.Hub

	mu      sync.Mutex
	answers map[string]chat.Message
}

func (n *eagerNarrator) Narrate(ctx context.Context, conversationID string, text string, ttl time.Duration) {
	n.MockNarrator.Narrate(ctx, conversationID, text, ttl)
	n.mu.Lock()
	defer n.mu.Unlock()
	for prefix, reply := range n.answers {
		if strings.HasPrefix(text, prefix) {
			n.hub.Deliver(reply)
		}
	}
}

func TestEngine_ImmediateAnswersAreNotLost(t *testing.T) {
	f := newFixture(t)
	hub := input.NewHub(nil)
	narrator := &eagerNarrator{hub: hub, answers: map[string]chat.Message{
		"Do you <@bob> accept": {ConversationID: conv, AuthorID: "bob", Content: "yes"},
		"<@alice>, **1:**":     {ConversationID: conv, AuthorID: "alice", Content: "1"},
	}}
	f.dice.Strike(StartingHealth, 1, Hit)
	engine := NewEngine(Deps{
		Store:     f.store,
		Stats:     f.store,
		Cooldowns: f.store,
		Rewards:   progression.NewEngine(f.store, nil),
		Confirmer: confirm.NewPrompter(hub, narrator, time.Second),
		Input:     hub,
		Narrator:  narrator,
		Dice:      f.dice,
	}, Options{ActionTimeout: time.Second})

	res, err := engine.Run(context.Background(), challenge())
	require.NoError(t, err)
	assert.Equal(t, Concluded, res.State)
	assert.Equal(t, "alice", res.WinnerID)
	assert.Zero(t, hub.Waiting(conv))
}
