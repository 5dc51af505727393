// Package suggest picks "did you mean" candidates for mistyped author names,
// package names, versions, realms and registries.
//
// A candidate sharing the typed prefix always wins; otherwise the candidate
// with the smallest Levenshtein distance is chosen.
package suggest

import (
	"slices"
	"strings"

	"github.com/agext/levenshtein"
)

// Closest returns the option that best matches input.
//
// An empty input yields fallback. Otherwise the first option (in the given
// order) that agrees with input, ignoring case, over the length of the
// shorter of the two is returned. "abc" thus matches both "ab" and "abcd".
// Failing that, options are ranked by edit distance and the nearest one wins,
// ties going to the earlier option. With no options at all, fallback is
// returned. The options slice is never modified.
func Closest(input string, options []string, fallback string) string {
	if input == "" || len(options) == 0 {
		return fallback
	}

	lower := []rune(strings.ToLower(input))
	for _, opt := range options {
		if sharesPrefix(lower, opt) {
			return opt
		}
	}

	ranked := slices.Clone(options)
	slices.SortStableFunc(ranked, func(a, b string) int {
		return levenshtein.Distance(input, a, nil) - levenshtein.Distance(input, b, nil)
	})
	return ranked[0]
}

// Distance is the edit distance between a and b normalized by the longer
// string's length, so 0 means identical and 1 means nothing in common.
func Distance(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.Distance(a, b, nil)) / float64(longest)
}

// Rank returns options ordered by how well they match input, using the same
// rules as [Closest]: prefix matches first in their original order, then the
// rest by increasing edit distance.
func Rank(input string, options []string) []string {
	lower := []rune(strings.ToLower(input))
	var prefixed, rest []string
	for _, opt := range options {
		if sharesPrefix(lower, opt) {
			prefixed = append(prefixed, opt)
		} else {
			rest = append(rest, opt)
		}
	}
	slices.SortStableFunc(rest, func(a, b string) int {
		return levenshtein.Distance(input, a, nil) - levenshtein.Distance(input, b, nil)
	})
	return append(prefixed, rest...)
}

// sharesPrefix compares lower with opt over their common length.
func sharesPrefix(lower []rune, opt string) bool {
	o := []rune(strings.ToLower(opt))
	n := min(len(lower), len(o))
	return slices.Equal(lower[:n], o[:n])
}
