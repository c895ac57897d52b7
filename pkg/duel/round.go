package duel

import (
	"github.com/jwebster45206/infamy/pkg/character"
)

// Action is what an actor chooses on their turn.
type Action int

const (
	Attack Action = iota + 1
	Barrage
)

func (a Action) String() string {
	switch a {
	case Attack:
		return "attack"
	case Barrage:
		return "barrage"
	default:
		return "unknown"
	}
}

// ParseAction maps the menu answer "1" or "2" to an action.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "1":
		return Attack, true
	case "2":
		return Barrage, true
	}
	return 0, false
}

// floor is the lower bound of both the damage and mitigation rolls.
func (a Action) floor() int {
	if a == Barrage {
		return 10
	}
	return 1
}

// Chance is the independent draw deciding whether damage lands.
type Chance int

const (
	Hit Chance = iota
	Miss
	Blocked
)

func (c Chance) String() string {
	switch c {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Strike is the outcome of one actor's action.
type Strike struct {
	Action     Action
	Weapon     character.Item
	Damage     int
	Mitigation int
	// Overpowered reports Damage > Mitigation. It is informational only; the
	// Chance draw alone decides whether damage is applied.
	Overpowered bool
	Chance      Chance
	HealthAfter int
}

// Landed reports whether the strike changed the opponent's health.
func (s Strike) Landed() bool {
	return s.Chance == Hit
}

// Resolve rolls one action of weapon against the opponent's shield item.
// Attack rolls damage in [1, damage/10] and mitigation in [1, defense*2/10];
// Barrage uses 10 as the lower bound of both. An upper bound below its lower
// bound is raised to it.
func Resolve(dice Dice, weapon, shield character.Item, action Action, opponentHealth int) Strike {
	lo := action.floor()
	damage := dice.IntRange(lo, max(lo, weapon.Damage/10))
	mitigation := dice.IntRange(lo, max(lo, shield.Defense*2/10))
	chance := dice.Chance()

	health := opponentHealth
	if chance == Hit {
		health -= damage
	}
	return Strike{
		Action:      action,
		Weapon:      weapon,
		Damage:      damage,
		Mitigation:  mitigation,
		Overpowered: damage > mitigation,
		Chance:      chance,
		HealthAfter: health,
	}
}
