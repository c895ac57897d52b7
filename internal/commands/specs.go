package commands

import "time"

func (d *Dispatcher) specs() []*Spec {
	return []*Spec{
		{Name: "register", Summary: "Create your character.", Run: d.register},
		{Name: "profile", Usage: "[@user]", Summary: "Show a character sheet.", Register: true, Run: d.profile},
		{Name: "bal", Aliases: []string{"balance"}, Usage: "[@user]", Summary: "Show a balance.", Register: true, Run: d.balance},
		{Name: "next", Summary: "Experience needed for your next levels.", Register: true, Run: d.next},
		{Name: "skills", Summary: "List the skills.", Run: d.skills},
		{Name: "inventory", Aliases: []string{"inv", "items"}, Usage: "[@user]", Summary: "List owned items.", Register: true, Run: d.inventory},
		{Name: "top", Aliases: []string{"lb", "leaderboard"}, Usage: "[wins]", Summary: "Show the leaderboard.", Run: d.top},
		{Name: "class", Usage: "<class>", Summary: "Change your class.", Register: true, Run: d.class},
		{Name: "guide", Aliases: []string{"help"}, Summary: "Show this guide.", Run: d.guide},

		{Name: "shop", Usage: "[recommend]", Summary: "Browse the shop.", Register: true, Run: d.shop},
		{Name: "item", Usage: "<name>", Summary: "Show a shop item.", Run: d.item},
		{Name: "buy", Usage: "<item>", Summary: "Buy an item from the shop.", Register: true, Run: d.buy},
		{Name: "equip", Usage: "<item>", Summary: "Equip an owned item for duels.", Register: true, Run: d.equip},
		{Name: "sell", Usage: "<item>", Summary: "Sell an owned item.", Register: true, Run: d.sell},
		{Name: "upgrade", Usage: "<item>", Summary: "Double an item's stats and price.", Register: true,
			Cooldown: &Cooldown{Rate: 1, Per: 180 * time.Second}, Run: d.upgrade},
		{Name: "merge", Usage: "<item> <item>", Summary: "Merge two owned items.", Register: true, Run: d.merge},
		{Name: "rename", Usage: "<item> <new name>", Summary: "Rename an owned item.", Register: true, Run: d.rename},

		{Name: "master", Summary: "Train a skill mastery.", Register: true,
			Cooldown: &Cooldown{Rate: 1, Per: 600 * time.Second}, Run: d.master},
		{Name: "quest", Summary: "Go on a quest.", Register: true,
			Cooldown: &Cooldown{Rate: 2, Per: 180 * time.Second}, Run: d.quest},
		{Name: "coinflip", Aliases: []string{"flip"}, Usage: "[heads|tails]", Summary: "Flip a coin.", Register: true,
			Cooldown: &Cooldown{Rate: 2, Per: 180 * time.Second}, Run: d.coinflip},
		{Name: "drink", Usage: "<@user>", Summary: "Challenge someone to a drinking contest.", Register: true,
			Cooldown: &Cooldown{Rate: 1, Per: 300 * time.Second}, Run: d.drink},
		{Name: "daily", Summary: "Collect your daily reward.", Register: true,
			Cooldown: &Cooldown{Rate: 1, Per: 24 * time.Hour}, Run: d.daily},
		{Name: "duel", Aliases: []string{"battle"}, Usage: "<@user>", Summary: "Challenge someone to a duel.", Register: true,
			Background: true, Cooldown: &Cooldown{Rate: 1, Per: 180 * time.Second, Deferred: true}, Run: d.duel},

		{Name: "admin", Usage: "add-quest <text> | add-item <name> <price> <damage> <defense> <description>",
			Summary: "Extend the catalog.", Register: true, Admin: true, Run: d.admin},
	}
}
