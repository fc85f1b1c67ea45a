// Package validation provides predicate helpers for typed handler
// parameters. Every helper returns a predicate of the shape the
// parameter pipeline expects: the converted value plus the parameters
// bound before it.
package validation

import "strings"

// Between accepts integers in the closed range [lo, hi].
func Between(lo, hi int) func(value any, bound map[string]any) bool {
	return func(value any, bound map[string]any) bool {
		n, ok := value.(int)
		return ok && lo <= n && n <= hi
	}
}

// Even accepts even integers.
func Even() func(value any, bound map[string]any) bool {
	return func(value any, bound map[string]any) bool {
		n, ok := value.(int)
		return ok && n%2 == 0
	}
}

// Odd accepts odd integers.
func Odd() func(value any, bound map[string]any) bool {
	return func(value any, bound map[string]any) bool {
		n, ok := value.(int)
		return ok && n%2 != 0
	}
}

// NonEmpty accepts strings with at least one non-space character.
func NonEmpty() func(value any, bound map[string]any) bool {
	return func(value any, bound map[string]any) bool {
		s, ok := value.(string)
		return ok && strings.TrimSpace(s) != ""
	}
}

// MaxLen accepts strings of at most n bytes.
func MaxLen(n int) func(value any, bound map[string]any) bool {
	return func(value any, bound map[string]any) bool {
		s, ok := value.(string)
		return ok && len(s) <= n
	}
}

// OneOf accepts a string drawn from the given set, case-folded.
func OneOf(options ...string) func(value any, bound map[string]any) bool {
	set := make(map[string]struct{}, len(options))
	for _, option := range options {
		set[strings.ToLower(option)] = struct{}{}
	}
	return func(value any, bound map[string]any) bool {
		s, ok := value.(string)
		if !ok {
			return false
		}
		_, found := set[strings.ToLower(s)]
		return found
	}
}
