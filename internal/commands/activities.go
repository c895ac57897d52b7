package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/infamy/internal/catalog"
	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/duel"
	"github.com/jwebster45206/infamy/pkg/progression"
)

// Mastery training tiers by a 1-100 roll.
var masteryTiers = []struct {
	min    int
	award  progression.Award
	remark string
}{
	{75, progression.Award{Experience: 100, Currency: 250}, "You have done amazing"},
	{50, progression.Award{Experience: 50, Currency: 100}, "You have done well"},
	{1, progression.Award{Experience: 20, Currency: 10}, "You did poorly"},
}

const (
	questChoices   = 5
	starterMaxTier = 2
)

func (d *Dispatcher) master(ctx context.Context, inv *Invocation) error {
	skill, err := choose(ctx, inv, "Which skill do you want to master? "+character.SkillList(),
		character.ParseSkill, "That isn't a skill. Choose one of "+character.SkillList()+".")
	if err != nil {
		return promptErr(ctx, inv, err)
	}

	if _, err := d.Progression.Update(ctx, inv.Author.ID, func(s *character.Sheet) error {
		s.EnsureMastery(skill)
		return nil
	}); err != nil {
		return err
	}

	roll := d.Dice.IntRange(1, 100)
	for _, tier := range masteryTiers {
		if roll < tier.min {
			continue
		}
		award := tier.award
		award.LevelUp = tier.remark + " and leveled up your {skill} mastery to level {level}, earning {currency}$."
		award.Plain = tier.remark + " and earned {xp} {skill} mastery xp and {currency}$."
		out, err := d.Progression.AwardMastery(ctx, inv.Author.ID, skill, award)
		if err != nil {
			return err
		}
		inv.Say(ctx, out.Narration())
		return nil
	}
	return fmt.Errorf("no mastery tier for roll %d", roll)
}

func (d *Dispatcher) quest(ctx context.Context, inv *Invocation) error {
	text, err := d.Catalog.RandomQuest(ctx)
	if errors.Is(err, catalog.ErrNoQuests) {
		inv.Say(ctx, "There are no quests right now.")
		return nil
	}
	if err != nil {
		return err
	}

	answer := d.Dice.IntRange(1, questChoices)
	msg, err := inv.Prompt(ctx,
		fmt.Sprintf("%s, you have been sent on a quest!\n%s\nType a number between 1-%d.", chat.Mention(inv.Author.ID), text, questChoices),
		chat.Digits(), d.settings.QuestTimeout)
	if errors.Is(err, chat.ErrInputTimeout) {
		inv.Sayf(ctx, "%s, you took too long and the quest was lost.", chat.Mention(inv.Author.ID))
		return nil
	}
	if err != nil {
		return err
	}

	guess, _ := strconv.Atoi(strings.TrimSpace(msg.Content))
	var award progression.Award
	if guess == answer {
		award = progression.Award{
			Experience: d.Dice.IntRange(1, 50),
			Currency:   d.Dice.IntRange(1, 100),
			LevelUp:    "{mention} completed the quest, leveled up to {level} and earned {currency}$!",
			Plain:      "{mention} completed the quest and earned {xp}xp and {currency}$!",
		}
	} else {
		award = progression.Award{
			Experience: 20,
			Currency:   d.Dice.IntRange(1, 100),
			LevelUp:    fmt.Sprintf("{mention} failed the quest (it was %d) but still leveled up to {level} and found {currency}$.", answer),
			Plain:      fmt.Sprintf("{mention} failed the quest (it was %d) but still earned {xp}xp and found {currency}$.", answer),
		}
	}
	out, err := d.Progression.Award(ctx, inv.Author.ID, award)
	if err != nil {
		return err
	}
	inv.Say(ctx, out.Narration())
	return nil
}

func (d *Dispatcher) coinflip(ctx context.Context, inv *Invocation) error {
	sides := []string{"Heads", "Tails"}
	choice := d.Names.Title(inv.Rest(0))
	if choice == "" {
		choice = sides[d.Dice.IntRange(0, 1)]
	}
	if choice != sides[0] && choice != sides[1] {
		inv.Sayf(ctx, "Please type `Heads` or `Tails` instead of `%s`.", inv.Rest(0))
		return nil
	}
	flip := sides[d.Dice.IntRange(0, 1)]

	award := progression.Award{Experience: 50, Currency: 100,
		LevelUp: "It landed on " + flip + ". {mention} lost but leveled up to {level} and got {currency}$.",
		Plain:   "It landed on " + flip + ". {mention} lost but got {xp}xp and {currency}$.",
	}
	if flip == choice {
		award = progression.Award{Experience: 100, Currency: 200,
			LevelUp: "It landed on " + flip + "! {mention} won, leveled up to {level} and got {currency}$.",
			Plain:   "It landed on " + flip + "! {mention} won {xp}xp and {currency}$.",
		}
	}
	out, err := d.Progression.Award(ctx, inv.Author.ID, award)
	if err != nil {
		return err
	}
	inv.Say(ctx, out.Narration())
	return nil
}

func (d *Dispatcher) drink(ctx context.Context, inv *Invocation) error {
	target, ok := inv.Target(ctx, inv.Rest(0))
	if !ok || inv.Rest(0) == "" {
		inv.Sayf(ctx, "Usage: `%sdrink <@user>`", d.settings.Prefix)
		return nil
	}
	if target.Bot || target.ID == inv.Author.ID {
		inv.Say(ctx, "Must not be a bot or yourself.")
		return nil
	}
	if _, err := d.Store.LoadCharacter(ctx, target.ID); err != nil {
		if errors.Is(err, character.ErrNotRegistered) {
			inv.Sayf(ctx, "%s is not registered.", chat.Mention(target.ID))
			return nil
		}
		return err
	}

	prompt := fmt.Sprintf("%s, do you accept %s's drinking challenge?\nYes or No?", chat.Mention(target.ID), chat.Mention(inv.Author.ID))
	res, err := d.Confirm.Ask(ctx, inv.Message.ConversationID, target.ID, prompt)
	if err != nil {
		return err
	}
	if !res.Accepted() {
		inv.Say(ctx, "I guess they didn't want to get drunk tonight.")
		return nil
	}

	winner, loser := inv.Author.ID, target.ID
	if d.Dice.IntRange(0, 1) == 1 {
		winner, loser = loser, winner
	}
	out, err := d.Progression.Award(ctx, winner, progression.Award{
		Experience: d.Dice.IntRange(10, 100),
		Currency:   d.Dice.IntRange(10, 100),
		LevelUp:    "{mention} drank " + chat.Mention(loser) + " under the table, leveled up to {level} and won {currency}$!",
		Plain:      "{mention} drank " + chat.Mention(loser) + " under the table and won {xp}xp and {currency}$!",
	})
	if err != nil {
		return err
	}
	inv.Say(ctx, out.Narration())
	return nil
}

func (d *Dispatcher) daily(ctx context.Context, inv *Invocation) error {
	money := d.Dice.IntRange(100, 1000)
	owned := make([]string, len(inv.Sheet.Inventory))
	for i, it := range inv.Sheet.Inventory {
		owned[i] = it.Name
	}
	starter, found, err := d.Catalog.StarterItem(ctx, inv.Sheet.Skills(), starterMaxTier, owned)
	if err != nil {
		return err
	}

	gift := starter.Instance(uuid.NewString(), inv.Author.ID)
	_, err = d.Progression.Update(ctx, inv.Author.ID, func(s *character.Sheet) error {
		s.Credit(money)
		if found {
			if err := s.AddItem(gift); errors.Is(err, character.ErrDuplicateItem) {
				found = false
			} else if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if found {
		inv.Sayf(ctx, "For your patience, %s earned **%d$** and **%s**!", chat.Mention(inv.Author.ID), money, starter.Name)
		return nil
	}
	inv.Sayf(ctx, "There was no item for you today, but %s still earned **%d$**.", chat.Mention(inv.Author.ID), money)
	return nil
}

func (d *Dispatcher) duel(ctx context.Context, inv *Invocation) error {
	target, ok := inv.Target(ctx, inv.Rest(0))
	if !ok || inv.Rest(0) == "" {
		inv.Sayf(ctx, "Usage: `%sduel <@user>`", d.settings.Prefix)
		return nil
	}
	res, err := d.Duels.Run(ctx, duel.Challenge{
		ConversationID: inv.Message.ConversationID,
		Challenger:     inv.Author,
		Defender:       target,
		CooldownKey:    inv.CooldownKey(),
	})
	switch {
	case errors.Is(err, duel.ErrIneligibleTarget), errors.Is(err, duel.ErrOnCooldown), errors.Is(err, character.ErrNotRegistered):
		return nil
	case err != nil:
		return err
	}
	inv.logger.Info("Duel finished", "duel_id", res.ID, "state", res.State.String(), "winner_id", res.WinnerID)
	return nil
}
