// Package keyderive implements the normalization and shard-key
// derivation pipeline shared by the indexer and the query engine. It
// is a pure, side-effect-free transform: the same line always produces
// the same ordered key list, and it never touches disk or the network.
package keyderive

import (
	"strings"

	"github.com/subsetgrep/subsetgrep/keyconfig"
	"github.com/subsetgrep/subsetgrep/textfold"
	"github.com/subsetgrep/subsetgrep/wordtable"
)

// Normalize runs the first three canonicalization steps: NFKD-style
// fold, lowercase, substitute. It does not apply the final ASCII
// filter, since callers that need whitespace-preserving variants
// (fuzzy query normalization) filter differently.
func Normalize(s string) string {
	return textfold.Normalize(s)
}

// filterASCIIAlnum applies the final canonicalization step: drop every
// character not in [a-z0-9].
func filterASCIIAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalString runs the full canonicalization pipeline and returns
// the resulting ASCII string S, from which primary and secondary keys
// are derived.
func CanonicalString(line string) string {
	return filterASCIIAlnum(Normalize(line))
}

// DeriveKeys returns the ordered, de-duplicated list of shard keys for
// line: primary key first (if |S| >= keyconfig.IndexLength), then
// secondary keys in common-word-table order: every table trigram (one
// per common word) found as a subsequence of S. keyconfig.IndexDepth is
// not consulted.
func DeriveKeys(line string) []string {
	s := CanonicalString(line)
	if s == "" {
		return nil
	}

	seen := make(map[string]struct{}, 8)
	var keys []string

	if len(s) >= keyconfig.IndexLength {
		primary := s[:keyconfig.IndexLength]
		seen[primary] = struct{}{}
		keys = append(keys, primary)
	}

	for _, word := range wordtable.Trigrams() {
		if _, ok := seen[word]; ok {
			continue
		}
		if isSubsequence(word, s) {
			seen[word] = struct{}{}
			keys = append(keys, word)
		}
	}

	return keys
}

// IndexOf is an alias for DeriveKeys.
func IndexOf(line string) []string {
	return DeriveKeys(line)
}

// isSubsequence reports whether every character of needle occurs in
// haystack in order, not necessarily contiguously.
func isSubsequence(needle, haystack string) bool {
	if needle == "" {
		return true
	}
	ni := 0
	for _, r := range haystack {
		if rune(needle[ni]) == r {
			ni++
			if ni == len(needle) {
				return true
			}
		}
	}
	return false
}

