// Package querynorm is a pure function mapping a raw query and search
// style to a search string (the Aho-Corasick pattern handed to the
// scanner) and a primary shard key (which shard file to open).
package querynorm

import (
	"strings"

	"github.com/subsetgrep/subsetgrep/keyconfig"
	"github.com/subsetgrep/subsetgrep/keyderive"
)

// AsSearchString derives the search string used as the scanner's
// pattern, per style:
//
//   - strict: the query unchanged.
//   - case-insensitive: Unicode-lowercase, otherwise unchanged.
//   - fuzzy: normalize/lowercase/substitute, with runs of dropped
//     characters collapsed to a single space and the result trimmed,
//     so word boundaries survive.
func AsSearchString(query string, style keyconfig.SearchStyle) string {
	switch style {
	case keyconfig.StyleStrict:
		return query
	case keyconfig.StyleCaseInsensitive:
		return strings.ToLower(query)
	case keyconfig.StyleFuzzy:
		return fuzzyFold(query)
	default:
		return query
	}
}

// fuzzyFold applies keyderive.Normalize (steps 1-3) then collapses any
// run of characters outside [a-z0-9] to a single space, trimming the
// result. Unlike keyderive.CanonicalString, whitespace is preserved as
// word-boundary information rather than dropped outright.
func fuzzyFold(query string) string {
	normalized := keyderive.Normalize(query)

	var b strings.Builder
	b.Grow(len(normalized))
	inGap := false
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inGap = false
			continue
		}
		if !inGap {
			b.WriteByte(' ')
			inGap = true
		}
	}
	return strings.TrimSpace(b.String())
}

// PrimaryKey derives the shard key a query would route to: run the
// full canonicalization pipeline on the raw query (not the search
// string) and take the first keyconfig.IndexLength characters. Returns
// ok=false when the canonical form is shorter than IndexLength — the
// query is unanswerable and the caller should return an empty result
// set. This must equal the primary key indexing would assign to a
// line whose content is exactly the query.
func PrimaryKey(query string) (key string, ok bool) {
	s := keyderive.CanonicalString(query)
	if len(s) < keyconfig.IndexLength {
		return "", false
	}
	return s[:keyconfig.IndexLength], true
}
