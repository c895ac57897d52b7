package duel

import (
	"math/rand/v2"
	"sync"
)

// Dice is the randomness a duel consumes.
type Dice interface {
	// IntRange returns a uniform integer in [lo, hi].
	IntRange(lo, hi int) int
	// Chance draws Hit, Miss or Blocked uniformly.
	Chance() Chance
}

type randomDice struct{}

// RandomDice returns dice backed by the process-wide generator.
func RandomDice() Dice {
	return randomDice{}
}

func (randomDice) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo+1)
}

func (randomDice) Chance() Chance {
	return Chance(rand.IntN(3))
}

// ScriptedDice replays fixed rolls for tests. Once a script runs out it falls
// back to the lower bound and Miss.
type ScriptedDice struct {
	mu      sync.Mutex
	rolls   []int
	chances []Chance
}

var _ Dice = (*ScriptedDice)(nil)

// NewScriptedDice creates dice with no scripted rolls.
func NewScriptedDice() *ScriptedDice {
	return &ScriptedDice{}
}

// Strike queues the rolls for one Resolve call.
func (d *ScriptedDice) Strike(damage, mitigation int, chance Chance) *ScriptedDice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolls = append(d.rolls, damage, mitigation)
	d.chances = append(d.chances, chance)
	return d
}

// Rolls queues raw IntRange results.
func (d *ScriptedDice) Rolls(values ...int) *ScriptedDice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolls = append(d.rolls, values...)
	return d
}

// Chances queues raw Chance results.
func (d *ScriptedDice) Chances(values ...Chance) *ScriptedDice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chances = append(d.chances, values...)
	return d
}

func (d *ScriptedDice) IntRange(lo, hi int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rolls) == 0 {
		return lo
	}
	v := d.rolls[0]
	d.rolls = d.rolls[1:]
	return v
}

func (d *ScriptedDice) Chance() Chance {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.chances) == 0 {
		return Miss
	}
	c := d.chances[0]
	d.chances = d.chances[1:]
	return c
}
