package character

import (
	"fmt"
	"strings"
)

// Skill is one of the ten fixed skills a character can master.
type Skill string

const (
	Marksmanship  Skill = "Marksmanship"
	Swordsmanship Skill = "Swordsmanship"
	Necromancy    Skill = "Necromancy"
	Clairvoyance  Skill = "Clairvoyance"
	Pyromania     Skill = "Pyromania"
	Permafrost    Skill = "Permafrost"
	Insight       Skill = "Insight"
	Sorcery       Skill = "Sorcery"
	Telekinesis   Skill = "Telekinesis"
	Swiftness     Skill = "Swiftness"
)

// AllSkills lists every skill in display order.
var AllSkills = []Skill{
	Marksmanship, Swordsmanship, Necromancy, Clairvoyance, Pyromania,
	Permafrost, Insight, Sorcery, Telekinesis, Swiftness,
}

// ParseSkill matches free text against the skill list case-insensitively.
func ParseSkill(s string) (Skill, error) {
	s = strings.TrimSpace(s)
	for _, skill := range AllSkills {
		if strings.EqualFold(string(skill), s) {
			return skill, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a skill", ErrInvalidChoice, s)
}

// Valid reports whether s is one of the fixed skills.
func (s Skill) Valid() bool {
	_, err := ParseSkill(string(s))
	return err == nil
}

// SkillList renders the skills the way prompts show them.
func SkillList() string {
	names := make([]string, len(AllSkills))
	for i, s := range AllSkills {
		names[i] = string(s)
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
