package chat

import (
	"slices"
	"strings"
	"unicode"
)

// From matches messages written by a specific participant.
func From(authorID string) Predicate {
	return func(m Message) bool {
		return m.AuthorID == authorID
	}
}

// OneOf matches messages whose content is exactly one of the options.
func OneOf(options ...string) Predicate {
	return func(m Message) bool {
		return slices.Contains(options, m.Content)
	}
}

// OneOfFold matches messages whose content case-folds exactly to one of the options.
func OneOfFold(options ...string) Predicate {
	return func(m Message) bool {
		for _, o := range options {
			if strings.EqualFold(m.Content, o) {
				return true
			}
		}
		return false
	}
}

// Digits matches messages made only of ASCII digits.
func Digits() Predicate {
	return func(m Message) bool {
		if m.Content == "" {
			return false
		}
		for _, r := range m.Content {
			if r > unicode.MaxASCII || !unicode.IsDigit(r) {
				return false
			}
		}
		return true
	}
}

// All combines predicates with logical AND.
func All(preds ...Predicate) Predicate {
	return func(m Message) bool {
		for _, p := range preds {
			if !p(m) {
				return false
			}
		}
		return true
	}
}
