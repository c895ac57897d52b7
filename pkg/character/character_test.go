package character

import (
	"errors"
	"testing"
)

func TestParseSkill(t *testing.T) {
	tests := []struct {
		input   string
		want    Skill
		wantErr bool
	}{
		{"Marksmanship", Marksmanship, false},
		{"pyromania", Pyromania, false},
		{"  SWIFTNESS ", Swiftness, false},
		{"Cooking", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSkill(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidChoice) {
					t.Fatalf("ParseSkill(%q) error = %v, want ErrInvalidChoice", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSkill(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSkill(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseItemType(t *testing.T) {
	if got, err := ParseItemType("hammer"); err != nil || got != Hammer {
		t.Errorf("ParseItemType(hammer) = %q, %v", got, err)
	}
	if _, err := ParseItemType("Axe"); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("ParseItemType(Axe) error = %v, want ErrInvalidChoice", err)
	}
	for _, typ := range AllItemTypes {
		if typ.Icon() == "" {
			t.Errorf("item type %s has no icon", typ)
		}
	}
}

func TestNewSheet(t *testing.T) {
	s := NewSheet("42", "Rogue", Sorcery)

	if s.Level != 1 || s.Experience != 0 || s.Currency != StartingCurrency {
		t.Errorf("unexpected starting profile: %+v", s.Character)
	}
	m, ok := s.Mastery(Sorcery)
	if !ok {
		t.Fatal("expected a mastery record for the main skill")
	}
	if m.Level != 1 || m.Experience != 0 {
		t.Errorf("unexpected starting mastery: %+v", m)
	}
	if _, ok := s.Equipped(); ok {
		t.Error("new sheet should have nothing equipped")
	}
}

func TestSheet_Inventory(t *testing.T) {
	s := NewSheet("42", "Rogue", Sorcery)
	blade := Item{ID: "a", Name: "Night Blade", Type: Dagger, Price: 50}

	if err := s.AddItem(blade); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := s.AddItem(Item{ID: "b", Name: "night blade"}); !errors.Is(err, ErrDuplicateItem) {
		t.Errorf("duplicate AddItem error = %v, want ErrDuplicateItem", err)
	}

	s.EquippedItemID = "a"
	got, ok := s.Equipped()
	if !ok || got.Owner != "42" {
		t.Fatalf("Equipped() = %+v, %v", got, ok)
	}

	// Renaming keeps the equip pointer because it is keyed by id.
	got.Name = "Dawn Blade"
	if eq, ok := s.Equipped(); !ok || eq.Name != "Dawn Blade" {
		t.Errorf("equip lost after rename: %+v, %v", eq, ok)
	}

	if _, err := s.RemoveItem("dawn blade"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if s.EquippedItemID != "" {
		t.Error("removing the equipped item should clear the pointer")
	}
	if _, err := s.RemoveItem("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("RemoveItem(missing) error = %v", err)
	}
}

func TestSheet_EnsureMastery(t *testing.T) {
	s := NewSheet("1", "Mage", Insight)
	m := s.EnsureMastery(Permafrost)
	m.Experience = 10

	again, ok := s.Mastery(Permafrost)
	if !ok || again.Experience != 10 {
		t.Errorf("EnsureMastery should return the stored record, got %+v", again)
	}
	s.EnsureMastery(Insight)
	if len(s.Masteries) != 2 {
		t.Errorf("expected 2 mastery records, got %d", len(s.Masteries))
	}
}

func TestCharacter_Debit(t *testing.T) {
	c := Character{Currency: 100}
	if err := c.Debit(150); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Debit(150) error = %v", err)
	}
	if c.Currency != 100 {
		t.Errorf("failed debit changed balance to %d", c.Currency)
	}
	if err := c.Debit(100); err != nil || c.Currency != 0 {
		t.Errorf("Debit(100) = %v, balance %d", err, c.Currency)
	}
}

func TestItem_UpgradeAndMerge(t *testing.T) {
	sword := Item{Name: "Old Sword", Type: Sword, Price: 10, Damage: 100, Defense: 20, RequiredSkill: Swordsmanship}
	up := sword.Upgraded()
	if up.Price != 20 || up.Damage != 200 || up.Defense != 40 || up.Upgrades != 1 {
		t.Errorf("Upgraded() = %+v", up)
	}
	if sword.UpgradeCost() != 20 {
		t.Errorf("UpgradeCost() = %d", sword.UpgradeCost())
	}

	bow := Item{Name: "Long Bow", Type: Bow, Price: 5, Damage: 50, Defense: 5, RequiredSkill: Marksmanship}
	merged := Merge(sword, bow, "m1", "Old Bow", "")
	if merged.Type != Sword || merged.Price != 15 || merged.Damage != 150 || merged.Defense != 25 {
		t.Errorf("Merge() = %+v", merged)
	}
	if MergeCost(sword, bow) != 15 {
		t.Errorf("MergeCost() = %d", MergeCost(sword, bow))
	}
}

func TestItem_Validate(t *testing.T) {
	good := Item{Name: "Staff", Type: Staff, RequiredSkill: Sorcery}
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	bad := good
	bad.Type = "Axe"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("Validate() with bad type = %v", err)
	}
	bad = good
	bad.Price = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected negative price to fail validation")
	}
}
