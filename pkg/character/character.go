package character

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotRegistered is returned when a participant has no character record.
	ErrNotRegistered = errors.New("participant is not registered")

	// ErrAlreadyRegistered is returned when registering a participant twice.
	ErrAlreadyRegistered = errors.New("participant is already registered")

	// ErrRecordConflict is returned by a store when a concurrent write to the
	// same record won the race. Callers may retry.
	ErrRecordConflict = errors.New("character record changed concurrently")

	// ErrInvalidChoice is returned when free text does not name a known skill or item type.
	ErrInvalidChoice = errors.New("invalid choice")

	// ErrInsufficientFunds is returned when a debit would make the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrItemNotFound is returned when an owned item cannot be found by name or id.
	ErrItemNotFound = errors.New("item not found")

	// ErrDuplicateItem is returned when an owner already holds an item with the same name.
	ErrDuplicateItem = errors.New("item already owned")
)

const (
	StartingLevel    = 1
	StartingCurrency = 100
)

// Character is the profile part of a participant's sheet.
type Character struct {
	ID         string `json:"id"`
	Class      string `json:"class"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
	Currency   int    `json:"currency"`
	MainSkill  Skill  `json:"main_skill"`
	// EquippedItemID points at an Item.ID in the same sheet's inventory.
	EquippedItemID string `json:"equipped_item_id,omitempty"`
}

// Mastery is the secondary leveling track for one skill.
type Mastery struct {
	Skill      Skill `json:"skill"`
	Level      int   `json:"level"`
	Experience int   `json:"experience"`
}

// Sheet is the full persisted aggregate for a participant. Every mutation of a
// participant goes through one sheet so it can be applied atomically.
type Sheet struct {
	Character
	Masteries    []Mastery `json:"masteries"`
	Inventory    []Item    `json:"inventory"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSheet builds the sheet a participant receives on registration: level 1,
// no experience, the starting balance and one mastery record for the main skill.
func NewSheet(id, class string, mainSkill Skill) *Sheet {
	now := time.Now()
	return &Sheet{
		Character: Character{
			ID:        id,
			Class:     class,
			Level:     StartingLevel,
			Currency:  StartingCurrency,
			MainSkill: mainSkill,
		},
		Masteries:    []Mastery{{Skill: mainSkill, Level: 1}},
		Inventory:    []Item{},
		RegisteredAt: now,
		UpdatedAt:    now,
	}
}

// Mastery returns the mastery record for skill, if the participant holds one.
func (s *Sheet) Mastery(skill Skill) (*Mastery, bool) {
	for i := range s.Masteries {
		if s.Masteries[i].Skill == skill {
			return &s.Masteries[i], true
		}
	}
	return nil, false
}

// EnsureMastery returns the mastery record for skill, creating it at level 1 if missing.
func (s *Sheet) EnsureMastery(skill Skill) *Mastery {
	if m, ok := s.Mastery(skill); ok {
		return m
	}
	s.Masteries = append(s.Masteries, Mastery{Skill: skill, Level: 1})
	return &s.Masteries[len(s.Masteries)-1]
}

// Skills lists the skills the participant holds a mastery record for.
func (s *Sheet) Skills() []Skill {
	skills := make([]Skill, 0, len(s.Masteries))
	for _, m := range s.Masteries {
		skills = append(skills, m.Skill)
	}
	return skills
}

// Item looks up an owned item by name, case-insensitively.
func (s *Sheet) Item(name string) (*Item, bool) {
	for i := range s.Inventory {
		if strings.EqualFold(s.Inventory[i].Name, name) {
			return &s.Inventory[i], true
		}
	}
	return nil, false
}

// ItemByID looks up an owned item by its stable id.
func (s *Sheet) ItemByID(id string) (*Item, bool) {
	if id == "" {
		return nil, false
	}
	for i := range s.Inventory {
		if s.Inventory[i].ID == id {
			return &s.Inventory[i], true
		}
	}
	return nil, false
}

// Equipped returns the currently equipped item, or false when nothing is
// equipped or the pointer no longer resolves.
func (s *Sheet) Equipped() (*Item, bool) {
	return s.ItemByID(s.EquippedItemID)
}

// AddItem appends an owned item. Names are unique per owner.
func (s *Sheet) AddItem(item Item) error {
	if _, exists := s.Item(item.Name); exists {
		return ErrDuplicateItem
	}
	item.Owner = s.ID
	s.Inventory = append(s.Inventory, item)
	return nil
}

// RemoveItem deletes an owned item by name and clears the equip pointer if it
// referenced the removed item.
func (s *Sheet) RemoveItem(name string) (Item, error) {
	for i := range s.Inventory {
		if strings.EqualFold(s.Inventory[i].Name, name) {
			removed := s.Inventory[i]
			s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
			if s.EquippedItemID == removed.ID {
				s.EquippedItemID = ""
			}
			return removed, nil
		}
	}
	return Item{}, ErrItemNotFound
}

// Credit adds currency. Negative amounts are ignored.
func (c *Character) Credit(amount int) {
	if amount <= 0 {
		return
	}
	c.Currency += amount
}

// Debit removes currency, refusing to go below zero.
func (c *Character) Debit(amount int) error {
	if amount < 0 {
		return nil
	}
	if c.Currency < amount {
		return ErrInsufficientFunds
	}
	c.Currency -= amount
	return nil
}
