package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/names"
)

const maxRequiredLevel = 200

func (d *Dispatcher) admin(ctx context.Context, inv *Invocation) error {
	sub := ""
	if len(inv.Args) > 0 {
		sub = strings.ToLower(inv.Args[0])
	}
	switch sub {
	case "add-quest":
		return d.addQuest(ctx, inv)
	case "add-item":
		return d.addItem(ctx, inv)
	default:
		inv.Sayf(ctx, "Usage: `%sadmin %s`", d.settings.Prefix, inv.Spec.Usage)
		return nil
	}
}

func (d *Dispatcher) addQuest(ctx context.Context, inv *Invocation) error {
	text := strings.TrimSpace(d.Names.Censor(inv.Rest(1)))
	if text == "" {
		inv.Sayf(ctx, "Usage: `%sadmin add-quest <text>`", d.settings.Prefix)
		return nil
	}
	if err := d.Catalog.AddQuest(ctx, text); err != nil {
		return err
	}
	inv.logger.Info("Quest added")
	inv.Sayf(ctx, "Added the quest: %s", text)
	return nil
}

func (d *Dispatcher) addItem(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 6 {
		inv.Sayf(ctx, "Usage: `%sadmin add-item \"<name>\" <price> <damage> <defense> <description>`", d.settings.Prefix)
		return nil
	}
	name, err := d.Names.Name(inv.Args[1])
	if err != nil {
		inv.Sayf(ctx, "Pick an item name up to %d characters long.", names.MaxLength)
		return nil
	}
	var stats [3]int
	for i, raw := range inv.Args[2:5] {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			inv.Sayf(ctx, "Price, damage and defense must be whole numbers, got `%s`.", raw)
			return nil
		}
		stats[i] = n
	}
	it := character.Item{
		Name:        name,
		Price:       stats[0],
		Damage:      stats[1],
		Defense:     stats[2],
		Description: d.Names.Censor(inv.Rest(5)),
	}

	if it.RequiredSkill, err = choose(ctx, inv, "Which skill does it require? "+character.SkillList(),
		character.ParseSkill, "That isn't a skill."); err != nil {
		return promptErr(ctx, inv, err)
	}
	if it.RequiredLevel, err = choose(ctx, inv, fmt.Sprintf("What skill level does it require? (0-%d)", maxRequiredLevel),
		parseLevel, fmt.Sprintf("Type a number between 0 and %d.", maxRequiredLevel)); err != nil {
		return promptErr(ctx, inv, err)
	}
	types := make([]string, len(character.AllItemTypes))
	for i, t := range character.AllItemTypes {
		types[i] = string(t)
	}
	if it.Type, err = choose(ctx, inv, "What type of item is it? "+strings.Join(types, ", "),
		character.ParseItemType, "That isn't an item type."); err != nil {
		return promptErr(ctx, inv, err)
	}

	res, err := inv.Confirm(ctx, "Create this item? Yes or No?\n"+itemDetail(it))
	if err != nil {
		return err
	}
	if !res.Accepted() {
		inv.Declined(ctx, res, fmt.Sprintf("**%s** was not created.", it.Name))
		return nil
	}
	if err := d.Catalog.AddItem(ctx, it); err != nil {
		if errors.Is(err, character.ErrDuplicateItem) {
			inv.Sayf(ctx, "The shop already has an item called **%s**.", it.Name)
			return nil
		}
		return err
	}
	inv.logger.Info("Catalog item added", "item", it.Name)
	inv.Sayf(ctx, "**%s** has been created!", it.Name)
	return nil
}

func parseLevel(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > maxRequiredLevel {
		return 0, character.ErrInvalidChoice
	}
	return n, nil
}
