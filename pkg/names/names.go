// Package names normalizes participant-supplied names for classes, items and quests.
package names

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxLength is the longest name accepted after normalization, in runes.
const MaxLength = 40

var (
	ErrEmpty   = errors.New("name is empty")
	ErrTooLong = errors.New("name is too long")
)

// Words that are masked wherever they appear as whole words.
var blocked = []string{
	"fuck", "shit", "bitch", "bastard", "cock", "dick", "pussy", "whore",
	"slut", "fag", "retard", "nigger", "nigga", "spic", "chink", "kike",
	"motherfucker", "asshole", "dumbass", "jackass", "bullshit", "dipshit",
	"shithead", "dickhead", "prick", "douche", "douchebag", "cunt",
}

// Normalizer title-cases free text and masks profanity.
type Normalizer struct {
	pattern *regexp.Regexp
}

// NewNormalizer builds a normalizer with the blocked word list compiled once.
func NewNormalizer() *Normalizer {
	quoted := make([]string, len(blocked))
	for i, w := range blocked {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return &Normalizer{
		pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Censor replaces each blocked word with asterisks of the same length.
func (n *Normalizer) Censor(text string) string {
	return n.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return strings.Repeat("*", utf8.RuneCountInString(match))
	})
}

// ContainsProfanity reports whether text holds a blocked word.
func (n *Normalizer) ContainsProfanity(text string) bool {
	return n.pattern.MatchString(text)
}

// Title collapses whitespace and title-cases every word. Casers are stateful,
// so one is built per call.
func (n *Normalizer) Title(text string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(text), " "))
}

// Name censors and title-cases text and checks its length.
func (n *Normalizer) Name(text string) (string, error) {
	name := n.Title(n.Censor(text))
	if name == "" {
		return "", ErrEmpty
	}
	if utf8.RuneCountInString(name) > MaxLength {
		return "", ErrTooLong
	}
	return name, nil
}

// Merge blends two names: the leading half of a's words followed by the
// trailing half of b's words. Two single words are blended by runes instead.
func Merge(a, b string) string {
	wa, wb := strings.Fields(a), strings.Fields(b)
	switch {
	case len(wa) == 0:
		return strings.Join(wb, " ")
	case len(wb) == 0:
		return strings.Join(wa, " ")
	case len(wa) == 1 && len(wb) == 1:
		ra, rb := []rune(wa[0]), []rune(wb[0])
		return string(ra[:(len(ra)+1)/2]) + string(rb[len(rb)/2:])
	}
	head := wa[:(len(wa)+1)/2]
	tail := wb[len(wb)/2:]
	return strings.Join(append(append([]string{}, head...), tail...), " ")
}
