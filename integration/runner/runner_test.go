package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/infamy/internal/handlers"
	"github.com/jwebster45206/infamy/pkg/character"
)

func TestScope_Expand(t *testing.T) {
	sc := newScope("r1", TestSuite{Steps: []TestStep{
		{Participant: "alice"}, {Participant: "bob"}, {Participant: "alice"},
	}})

	assert.Equal(t, "alice-r1", sc.ids["alice"])
	assert.Equal(t, ">>duel <@bob-r1>", sc.expand(">>duel <@{bob}>"))
	assert.Equal(t, "no placeholders", sc.expand("no placeholders"))
}

func TestCollect(t *testing.T) {
	r := NewRunner("http://unused")
	r.Quiet = 20 * time.Millisecond
	r.Timeout = time.Second

	events := make(chan Event, 4)
	events <- Event{Type: "message", Data: map[string]any{"content": ">>bal"}}
	events <- Event{Type: "narration", Data: map[string]any{"text": "first"}}
	events <- Event{Type: "narration", Data: map[string]any{"text": "second"}}

	got, err := r.collect(context.Background(), events, false)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", got)

	_, err = r.collect(context.Background(), events, true)
	assert.NoError(t, err, "a quiet stream satisfies no_narration")

	events <- Event{Type: "narration", Data: map[string]any{"text": "unexpected"}}
	_, err = r.collect(context.Background(), events, true)
	assert.Error(t, err)
}

func TestCharacterProblems(t *testing.T) {
	sheet := character.NewSheet("alice-r1", "Ranger", character.Marksmanship)
	require.NoError(t, sheet.AddItem(character.Item{ID: "b1", Name: "Hunting Bow"}))
	sheet.EquippedItemID = "b1"
	c := &handlers.CharacterResponse{Sheet: sheet}

	level, balance, equipped := 1, 100, "hunting bow"
	assert.Empty(t, characterProblems(Expectations{
		Level: &level, Balance: &balance, Inventory: []string{"Hunting Bow"}, Equipped: &equipped,
	}, c))

	balance = 40
	problems := characterProblems(Expectations{Balance: &balance, Inventory: []string{"Yew Longbow"}}, c)
	assert.Len(t, problems, 2)
}
