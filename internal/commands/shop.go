package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/names"
)

const recommendations = 5

func (d *Dispatcher) shop(ctx context.Context, inv *Invocation) error {
	var (
		items []character.Item
		err   error
		title = "**Shop**"
	)
	if strings.EqualFold(inv.Rest(0), "recommend") {
		items, err = d.Catalog.Affordable(ctx, inv.Sheet.Currency, recommendations)
		title = fmt.Sprintf("**Items you can afford with %d$**", inv.Sheet.Currency)
	} else {
		items, err = d.Catalog.Items(ctx)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		inv.Say(ctx, "There's nothing here for you right now.")
		return nil
	}
	inv.Say(ctx, title+"\n"+itemList(items))
	return nil
}

func (d *Dispatcher) item(ctx context.Context, inv *Invocation) error {
	name := inv.Rest(0)
	if name == "" {
		inv.Sayf(ctx, "Usage: `%sitem <name>`", d.settings.Prefix)
		return nil
	}
	it, err := d.Catalog.Item(ctx, name)
	if errors.Is(err, character.ErrItemNotFound) {
		inv.Sayf(ctx, "There is no item called **%s** in the shop.", name)
		return nil
	}
	if err != nil {
		return err
	}
	inv.Say(ctx, itemDetail(it))
	return nil
}

func (d *Dispatcher) buy(ctx context.Context, inv *Invocation) error {
	name := inv.Rest(0)
	it, err := d.Catalog.Item(ctx, name)
	if errors.Is(err, character.ErrItemNotFound) {
		inv.Sayf(ctx, "There is no item called **%s** in the shop.", name)
		return nil
	}
	if err != nil {
		return err
	}

	s := inv.Sheet
	m, ok := s.Mastery(it.RequiredSkill)
	if !ok || m.Level < it.RequiredLevel {
		inv.Say(ctx, "You don't have the right skill or skill level.")
		return nil
	}
	if _, owned := s.Item(it.Name); owned {
		inv.Say(ctx, "You already have this item!")
		return nil
	}
	if s.Currency < it.Price {
		inv.Sayf(ctx, "Sorry, you need %d$ more to buy **%s**.", it.Price-s.Currency, it.Name)
		return nil
	}

	res, err := inv.Confirm(ctx, fmt.Sprintf("Do you really want to buy **%s**?\nPrice: %d$, Yes or No?", it.Name, it.Price))
	if err != nil {
		return err
	}
	if !res.Accepted() {
		inv.Declined(ctx, res, fmt.Sprintf("I guess you don't want to spend **%d$**.", it.Price))
		return nil
	}

	owned := it.Instance(uuid.NewString(), s.ID)
	_, err = d.Progression.Update(ctx, s.ID, func(s *character.Sheet) error {
		if err := s.Debit(it.Price); err != nil {
			return err
		}
		return s.AddItem(owned)
	})
	switch {
	case errors.Is(err, character.ErrInsufficientFunds):
		inv.Sayf(ctx, "You can't afford **%s** anymore.", it.Name)
		return nil
	case errors.Is(err, character.ErrDuplicateItem):
		inv.Say(ctx, "You already have this item!")
		return nil
	case err != nil:
		return err
	}
	inv.logger.Info("Item bought", "item", it.Name, "price", it.Price)
	inv.Sayf(ctx, "**%s** has been added to your inventory.", it.Name)
	return nil
}

func (d *Dispatcher) equip(ctx context.Context, inv *Invocation) error {
	name := inv.Rest(0)
	var equipped string
	_, err := d.Progression.Update(ctx, inv.Author.ID, func(s *character.Sheet) error {
		it, ok := s.Item(name)
		if !ok {
			return character.ErrItemNotFound
		}
		s.EquippedItemID = it.ID
		equipped = it.Name
		return nil
	})
	if errors.Is(err, character.ErrItemNotFound) {
		inv.Say(ctx, "You don't have this item.")
		return nil
	}
	if err != nil {
		return err
	}
	inv.Sayf(ctx, "**%s** has been equipped and can be used for battle.", equipped)
	return nil
}

func (d *Dispatcher) sell(ctx context.Context, inv *Invocation) error {
	it, ok := inv.Sheet.Item(inv.Rest(0))
	if !ok {
		inv.Say(ctx, "You don't have this item.")
		return nil
	}
	res, err := inv.Confirm(ctx, fmt.Sprintf("Are you sure you want to sell **%s** for **%d$**?\n`Yes` or `No`", it.Name, it.Price))
	if err != nil {
		return err
	}
	if !res.Accepted() {
		inv.Declined(ctx, res, fmt.Sprintf("I guess you don't want to sell **%s**.", it.Name))
		return nil
	}

	id := it.ID
	var price int
	_, err = d.Progression.Update(ctx, inv.Author.ID, func(s *character.Sheet) error {
		current, ok := s.ItemByID(id)
		if !ok {
			return character.ErrItemNotFound
		}
		removed, err := s.RemoveItem(current.Name)
		if err != nil {
			return err
		}
		price = removed.Price
		s.Credit(price)
		return nil
	})
	if errors.Is(err, character.ErrItemNotFound) {
		inv.Say(ctx, "You don't have this item.")
		return nil
	}
	if err != nil {
		return err
	}
	inv.Sayf(ctx, "You have received **%d$** for selling **%s**.", price, it.Name)
	return nil
}

func (d *Dispatcher) upgrade(ctx context.Context, inv *Invocation) error {
	it, ok := inv.Sheet.Item(inv.Rest(0))
	if !ok {
		inv.Say(ctx, "You don't have this item.")
		return nil
	}
	up := it.Upgraded()
	prompt := fmt.Sprintf("Are you sure you want to upgrade **%s** for **%d$**? Yes or No?\nModified Statistics: %s",
		it.Name, it.UpgradeCost(), statsPreview(up.Price, up.Damage, up.Defense))
	res, err := inv.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !res.Accepted() {
		inv.Declined(ctx, res, fmt.Sprintf("I guess you don't want to upgrade **%s**.", it.Name))
		return nil
	}

	id := it.ID
	_, err = d.Progression.Update(ctx, inv.Author.ID, func(s *character.Sheet) error {
		current, ok := s.ItemByID(id)
		if !ok {
			return character.ErrItemNotFound
		}
		if err := s.Debit(current.UpgradeCost()); err != nil {
			return err
		}
		*current = current.Upgraded()
		return nil
	})
	switch {
	case errors.Is(err, character.ErrItemNotFound):
		inv.Say(ctx, "You don't have this item.")
		return nil
	case errors.Is(err, character.ErrInsufficientFunds):
		inv.Say(ctx, "You don't have enough to upgrade this item.")
		return nil
	case err != nil:
		return err
	}
	inv.Sayf(ctx, "Upgraded **%s**'s statistics.", it.Name)
	return nil
}

func (d *Dispatcher) merge(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) != 2 {
		inv.Sayf(ctx, "Usage: `%smerge \"<item>\" \"<item>\"`", d.settings.Prefix)
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(inv.Args[0]), strings.TrimSpace(inv.Args[1])) {
		inv.Say(ctx, "You can't merge the same item together.")
		return nil
	}
	a, okA := inv.Sheet.Item(inv.Args[0])
	b, okB := inv.Sheet.Item(inv.Args[1])
	if !okA || !okB {
		inv.Say(ctx, "You must not have one of the items, or you misspelled one of the names.")
		return nil
	}
	cost := character.MergeCost(*a, *b)
	if inv.Sheet.Currency < cost {
		inv.Sayf(ctx, "You don't have enough money! Merging costs **%d$**.", cost)
		return nil
	}

	name, err := d.Names.Name(names.Merge(a.Name, b.Name))
	if err != nil {
		name = a.Name
	}
	preview := character.Merge(*a, *b, "", name, "")
	prompt := fmt.Sprintf("Are you sure you want to merge **%s** and **%s** into **%s** for **%d$**?\nModified Statistics: %s\n`Yes` or `No`?",
		a.Name, b.Name, name, cost, statsPreview(preview.Price, preview.Damage, preview.Defense))
	res, err := inv.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !res.Accepted() {
		inv.Declined(ctx, res, "I guess you don't want to merge them.")
		return nil
	}

	idA, idB := a.ID, b.ID
	_, err = d.Progression.Update(ctx, inv.Author.ID, func(s *character.Sheet) error {
		first, okA := s.ItemByID(idA)
		second, okB := s.ItemByID(idB)
		if !okA || !okB {
			return character.ErrItemNotFound
		}
		x, y := *first, *second
		if err := s.Debit(character.MergeCost(x, y)); err != nil {
			return err
		}
		wasEquipped := s.EquippedItemID == x.ID || s.EquippedItemID == y.ID
		if _, err := s.RemoveItem(x.Name); err != nil {
			return err
		}
		if _, err := s.RemoveItem(y.Name); err != nil {
			return err
		}
		merged := character.Merge(x, y, uuid.NewString(), name, strings.TrimSpace(names.Merge(x.Description, y.Description)))
		if err := s.AddItem(merged); err != nil {
			return err
		}
		if wasEquipped {
			s.EquippedItemID = merged.ID
		}
		return nil
	})
	switch {
	case errors.Is(err, character.ErrItemNotFound):
		inv.Say(ctx, "You must not have one of the items, or you misspelled one of the names.")
		return nil
	case errors.Is(err, character.ErrInsufficientFunds):
		inv.Say(ctx, "You don't have enough money!")
		return nil
	case errors.Is(err, character.ErrDuplicateItem):
		inv.Sayf(ctx, "You already own an item called **%s**.", name)
		return nil
	case err != nil:
		return err
	}
	inv.logger.Info("Items merged", "first", a.Name, "second", b.Name, "merged", name)
	inv.Sayf(ctx, "**%s** has been created!", name)
	return nil
}

func (d *Dispatcher) rename(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) < 2 {
		inv.Sayf(ctx, "Usage: `%srename \"<item>\" <new name>`", d.settings.Prefix)
		return nil
	}
	it, ok := inv.Sheet.Item(inv.Args[0])
	if !ok {
		inv.Say(ctx, "You don't have this item.")
		return nil
	}
	name, err := d.Names.Name(inv.Rest(1))
	if err != nil {
		inv.Sayf(ctx, "Pick a name up to %d characters long.", names.MaxLength)
		return nil
	}
	if inv.Sheet.Currency < it.Price {
		inv.Sayf(ctx, "Sorry, you need %d$ more to rename **%s**.", it.Price-inv.Sheet.Currency, it.Name)
		return nil
	}
	res, err := inv.Confirm(ctx, fmt.Sprintf("Are you sure you want to rename **%s** to **%s**? It will cost **%d$**\n`Yes` or `No`",
		it.Name, name, it.Price))
	if err != nil {
		return err
	}
	if !res.Accepted() {
		inv.Declined(ctx, res, fmt.Sprintf("I guess you don't want to rename **%s**.", it.Name))
		return nil
	}

	id := it.ID
	_, err = d.Progression.Update(ctx, inv.Author.ID, func(s *character.Sheet) error {
		current, ok := s.ItemByID(id)
		if !ok {
			return character.ErrItemNotFound
		}
		if other, taken := s.Item(name); taken && other.ID != id {
			return character.ErrDuplicateItem
		}
		if err := s.Debit(current.Price); err != nil {
			return err
		}
		current.Name = name
		return nil
	})
	switch {
	case errors.Is(err, character.ErrItemNotFound):
		inv.Say(ctx, "You don't have this item.")
		return nil
	case errors.Is(err, character.ErrDuplicateItem):
		inv.Sayf(ctx, "You already own an item called **%s**.", name)
		return nil
	case errors.Is(err, character.ErrInsufficientFunds):
		inv.Sayf(ctx, "You can't afford to rename **%s** anymore.", it.Name)
		return nil
	case err != nil:
		return err
	}
	inv.Sayf(ctx, "%s renamed **%s** to **%s**.", chat.Mention(inv.Author.ID), it.Name, name)
	return nil
}
