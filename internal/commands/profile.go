package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/names"
	"github.com/jwebster45206/infamy/pkg/progression"
)

const leaderboardSize = 10

func (d *Dispatcher) register(ctx context.Context, inv *Invocation) error {
	if _, err := d.Store.LoadCharacter(ctx, inv.Author.ID); err == nil {
		inv.Sayf(ctx, "%s, you are already registered.", chat.Mention(inv.Author.ID))
		return nil
	} else if !errors.Is(err, character.ErrNotRegistered) {
		return err
	}

	class, err := choose(ctx, inv, "What's your class? You can make it whatever you want.",
		d.Names.Name, "Pick a shorter class name.")
	if err != nil {
		return promptErr(ctx, inv, err)
	}

	skill, err := choose(ctx, inv, "What's your main skill? Choose one of "+character.SkillList()+".",
		character.ParseSkill, "That isn't a skill. Choose one of "+character.SkillList()+".")
	if err != nil {
		return promptErr(ctx, inv, err)
	}

	sheet := character.NewSheet(inv.Author.ID, class, skill)
	if err := d.Store.CreateCharacter(ctx, sheet); err != nil {
		if errors.Is(err, character.ErrAlreadyRegistered) {
			inv.Sayf(ctx, "%s, you are already registered.", chat.Mention(inv.Author.ID))
			return nil
		}
		return err
	}
	inv.logger.Info("Character registered", "class", class, "main_skill", skill)
	inv.Sayf(ctx, "%s, you are now a **%s** specializing in **%s**. You start with %d$.",
		chat.Mention(inv.Author.ID), class, skill, sheet.Currency)
	return nil
}

// subject loads the sheet of an optional mentioned participant, defaulting to
// the caller. It narrates and returns nil when the target is unusable.
func (d *Dispatcher) subject(ctx context.Context, inv *Invocation) (*character.Sheet, error) {
	target, ok := inv.Target(ctx, inv.Rest(0))
	if !ok {
		inv.Sayf(ctx, "Mention someone, like %s.", chat.Mention(inv.Author.ID))
		return nil, nil
	}
	if target.ID == inv.Author.ID {
		return inv.Sheet, nil
	}
	sheet, err := d.Store.LoadCharacter(ctx, target.ID)
	if errors.Is(err, character.ErrNotRegistered) {
		inv.Sayf(ctx, "%s is not registered.", chat.Mention(target.ID))
		return nil, nil
	}
	return sheet, err
}

func (d *Dispatcher) profile(ctx context.Context, inv *Invocation) error {
	s, err := d.subject(ctx, inv)
	if s == nil || err != nil {
		return err
	}
	equipped := "Nothing"
	if it, ok := s.Equipped(); ok {
		equipped = it.Name
	}
	owned := make([]string, len(s.Inventory))
	for i, it := range s.Inventory {
		owned[i] = it.Name
	}
	inventory := "Empty"
	if len(owned) > 0 {
		inventory = strings.Join(owned, ", ")
	}
	record, err := d.Store.DuelRecord(ctx, s.ID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s's profile\n", chat.Mention(s.ID))
	fmt.Fprintf(&b, "**Class:** %s\n", s.Class)
	fmt.Fprintf(&b, "**Level:** %d (%d/%d xp)\n", s.Level, s.Experience, s.Level*progression.LevelStep)
	fmt.Fprintf(&b, "**Balance:** %d$\n", s.Currency)
	fmt.Fprintf(&b, "**Main Skill:** %s\n", s.MainSkill)
	fmt.Fprintf(&b, "**Equipped:** %s\n", equipped)
	fmt.Fprintf(&b, "**Duels:** %d won, %d lost\n", record.Wins, record.Losses)
	fmt.Fprintf(&b, "**Skills:**\n%s\n", masteryLines(s))
	fmt.Fprintf(&b, "**Inventory:** %s", inventory)
	inv.Say(ctx, b.String())
	return nil
}

func (d *Dispatcher) balance(ctx context.Context, inv *Invocation) error {
	s, err := d.subject(ctx, inv)
	if s == nil || err != nil {
		return err
	}
	inv.Sayf(ctx, "%s has **%d$**", chat.Mention(s.ID), s.Currency)
	return nil
}

func (d *Dispatcher) next(ctx context.Context, inv *Invocation) error {
	s := inv.Sheet
	lines := []string{fmt.Sprintf("%s needs **%dxp** to reach level %d.",
		chat.Mention(s.ID), progression.ExperienceToNextLevel(s.Level, s.Experience), s.Level+1)}
	for _, m := range s.Masteries {
		lines = append(lines, fmt.Sprintf("%s: **%dxp** to mastery level %d",
			m.Skill, progression.MasteryToNextLevel(m.Level, m.Experience), m.Level+1))
	}
	inv.Say(ctx, strings.Join(lines, "\n"))
	return nil
}

func (d *Dispatcher) skills(ctx context.Context, inv *Invocation) error {
	inv.Say(ctx, "**Skills:** "+character.SkillList())
	return nil
}

func (d *Dispatcher) inventory(ctx context.Context, inv *Invocation) error {
	s, err := d.subject(ctx, inv)
	if s == nil || err != nil {
		return err
	}
	if len(s.Inventory) == 0 {
		inv.Sayf(ctx, "%s has no items.", chat.Mention(s.ID))
		return nil
	}
	inv.Sayf(ctx, "%s's inventory\n%s", chat.Mention(s.ID), itemList(s.Inventory))
	return nil
}

func (d *Dispatcher) top(ctx context.Context, inv *Invocation) error {
	var lines []string
	if strings.EqualFold(inv.Rest(0), "wins") {
		standings, err := d.Store.TopWinners(ctx, leaderboardSize)
		if err != nil {
			return err
		}
		for i, st := range standings {
			lines = append(lines, fmt.Sprintf("%d. %s %d wins", i+1, chat.Mention(st.ParticipantID), st.Score))
		}
	} else {
		sheets, err := d.Store.TopCharacters(ctx, leaderboardSize)
		if err != nil {
			return err
		}
		for i, s := range sheets {
			lines = append(lines, fmt.Sprintf("%d. %s Level %d %s", i+1, chat.Mention(s.ID), s.Level, s.Class))
		}
	}
	if len(lines) == 0 {
		inv.Say(ctx, "Nobody is on the leaderboard yet.")
		return nil
	}
	inv.Say(ctx, "**Leaderboard**\n"+strings.Join(lines, "\n"))
	return nil
}

func (d *Dispatcher) class(ctx context.Context, inv *Invocation) error {
	class, err := d.Names.Name(inv.Rest(0))
	switch {
	case errors.Is(err, names.ErrEmpty):
		inv.Sayf(ctx, "Usage: `%sclass <class>`", d.settings.Prefix)
		return nil
	case errors.Is(err, names.ErrTooLong):
		inv.Say(ctx, "That class name is too long.")
		return nil
	}
	if _, err := d.Progression.Update(ctx, inv.Author.ID, func(s *character.Sheet) error {
		s.Class = class
		return nil
	}); err != nil {
		return err
	}
	inv.Sayf(ctx, "Set class to **%s**", class)
	return nil
}

func (d *Dispatcher) guide(ctx context.Context, inv *Invocation) error {
	var b strings.Builder
	b.WriteString("**Infamy guide**\nRegister, buy an item, equip it and duel other players to climb the leaderboard.\n")
	for _, spec := range d.ordered {
		if spec.Admin {
			continue
		}
		fmt.Fprintf(&b, "`%s%s", d.settings.Prefix, spec.Name)
		if spec.Usage != "" {
			b.WriteString(" " + spec.Usage)
		}
		fmt.Fprintf(&b, "` %s\n", spec.Summary)
	}
	inv.Say(ctx, strings.TrimRight(b.String(), "\n"))
	return nil
}
