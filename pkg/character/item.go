package character

import (
	"fmt"
	"strings"
)

// ItemType is one of the nine fixed item categories.
type ItemType string

const (
	Sword  ItemType = "Sword"
	Bow    ItemType = "Bow"
	Spear  ItemType = "Spear"
	Dagger ItemType = "Dagger"
	Staff  ItemType = "Staff"
	Shield ItemType = "Shield"
	Scroll ItemType = "Scroll"
	Ring   ItemType = "Ring"
	Hammer ItemType = "Hammer"
)

// AllItemTypes lists every item type in display order.
var AllItemTypes = []ItemType{Sword, Bow, Spear, Dagger, Staff, Shield, Scroll, Ring, Hammer}

// ItemIcons is the read-only item type to icon table shared by every renderer.
var ItemIcons = map[ItemType]string{
	Sword:  "https://cdn.discordapp.com/attachments/389275624163770378/502084949420277781/sword.png",
	Bow:    "https://cdn.discordapp.com/attachments/389275624163770378/502087339854659604/bow.png",
	Spear:  "https://cdn.discordapp.com/attachments/389275624163770378/502088345661341696/spear.png",
	Dagger: "https://cdn.discordapp.com/attachments/389275624163770378/502089390747549696/dagger.png",
	Staff:  "https://cdn.discordapp.com/attachments/389275624163770378/502088392872558612/staff.png",
	Shield: "https://cdn.discordapp.com/attachments/389275624163770378/502083911388626974/shield.png",
	Scroll: "https://cdn.discordapp.com/attachments/389275624163770378/502082224900800513/scroll.png",
	Ring:   "https://cdn.discordapp.com/attachments/389275624163770378/502086417048928266/ring.png",
	Hammer: "https://cdn.discordapp.com/attachments/389275624163770378/502084112547315733/hammer.png",
}

// ParseItemType matches free text against the item types case-insensitively.
func ParseItemType(s string) (ItemType, error) {
	s = strings.TrimSpace(s)
	for _, t := range AllItemTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not an item type", ErrInvalidChoice, s)
}

// Icon returns the icon for the type, or "" for unknown types.
func (t ItemType) Icon() string {
	return ItemIcons[t]
}

// Item is either a shop template (no ID, no Owner) or an owned instance.
type Item struct {
	ID            string   `json:"id,omitempty" db:"-"`
	Name          string   `json:"name" db:"name"`
	Type          ItemType `json:"type" db:"type"`
	Price         int      `json:"price" db:"price"`
	Damage        int      `json:"damage" db:"damage"`
	Defense       int      `json:"defense" db:"defense"`
	RequiredSkill Skill    `json:"required_skill" db:"skill"`
	RequiredLevel int      `json:"required_level" db:"level"`
	Description   string   `json:"description,omitempty" db:"description"`
	Owner         string   `json:"owner,omitempty" db:"-"`
	Upgrades      int      `json:"upgrades" db:"-"`
}

// Instance copies a shop template into an owned item with a fresh id.
func (it Item) Instance(id, owner string) Item {
	owned := it
	owned.ID = id
	owned.Owner = owner
	owned.Upgrades = 0
	return owned
}

// Upgraded returns the item with price, damage and defense doubled.
func (it Item) Upgraded() Item {
	up := it
	up.Price *= 2
	up.Damage *= 2
	up.Defense *= 2
	up.Upgrades++
	return up
}

// UpgradeCost is what upgrading the item costs: the upgraded price.
func (it Item) UpgradeCost() int {
	return it.Price * 2
}

// Validate checks a shop template before it enters the catalog.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("item name is required")
	}
	if _, err := ParseItemType(string(it.Type)); err != nil {
		return err
	}
	if !it.RequiredSkill.Valid() {
		return fmt.Errorf("%w: %q is not a skill", ErrInvalidChoice, it.RequiredSkill)
	}
	if it.Price < 0 || it.Damage < 0 || it.Defense < 0 {
		return fmt.Errorf("item %q has negative stats", it.Name)
	}
	if it.RequiredLevel < 0 {
		return fmt.Errorf("item %q has a negative required level", it.Name)
	}
	return nil
}

// Merge combines two owned items into one. Stats and price add up; type,
// required skill and level come from the first item.
func Merge(a, b Item, id, name, description string) Item {
	return Item{
		ID:            id,
		Name:          name,
		Type:          a.Type,
		Price:         a.Price + b.Price,
		Damage:        a.Damage + b.Damage,
		Defense:       a.Defense + b.Defense,
		RequiredSkill: a.RequiredSkill,
		RequiredLevel: a.RequiredLevel,
		Description:   description,
		Owner:         a.Owner,
	}
}

// MergeCost is the price of merging two items.
func MergeCost(a, b Item) int {
	return a.Price + b.Price
}
