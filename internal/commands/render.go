package commands

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/progression"
)

func itemLine(n int, it character.Item) string {
	line := fmt.Sprintf("%d. [%s](%s) **%s** Price: %d$ Damage: %d Defense: %d Requires: %s level %d",
		n, it.Type, it.Type.Icon(), it.Name, it.Price, it.Damage, it.Defense, it.RequiredSkill, it.RequiredLevel)
	if it.Upgrades > 0 {
		line += fmt.Sprintf(" (upgraded %dx)", it.Upgrades)
	}
	return line
}

func itemList(items []character.Item) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = itemLine(i+1, it)
	}
	return strings.Join(lines, "\n")
}

func itemDetail(it character.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** [%s](%s)\n", it.Name, it.Type, it.Type.Icon())
	if it.Description != "" {
		fmt.Fprintf(&b, "%s\n", it.Description)
	}
	fmt.Fprintf(&b, "**Price:** %d$ **Damage:** %d **Defense:** %d\n", it.Price, it.Damage, it.Defense)
	fmt.Fprintf(&b, "**Requires:** %s level %d", it.RequiredSkill, it.RequiredLevel)
	return b.String()
}

func statsPreview(price, damage, defense int) string {
	return fmt.Sprintf("**Price:** %d$, **Damage:** %d, **Defense:** %d", price, damage, defense)
}

func masteryLines(s *character.Sheet) string {
	lines := make([]string, len(s.Masteries))
	for i, m := range s.Masteries {
		lines[i] = fmt.Sprintf("%s - Level %d (%d/%d xp)", m.Skill, m.Level, m.Experience, m.Level*progression.LevelStep)
	}
	return strings.Join(lines, "\n")
}
