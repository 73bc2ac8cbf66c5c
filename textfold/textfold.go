// Package textfold holds the character-level folding tables shared by
// keyderive (corpus line canonicalization) and wordtable (common-word
// canonicalization). Both sides must apply the identical fold so a
// word and a line containing it collapse to the same canonical form.
package textfold

import "strings"

// substitution is the leet-speak substitution table applied after
// lowercasing, character for character, in table order.
var substitution = map[rune]rune{
	'8': 'b',
	'3': 'e',
	'4': 'a',
	'6': 'g',
	'9': 'g',
	'1': 'i',
	'!': 'i',
	'l': 'i',
	'0': 'o',
	'5': 's',
	'$': 's',
	'7': 't',
	'2': 'z',
	'®': 'r',
	'£': 'e',
	'€': 'e',
	'@': 'a',
}

// compatibilityFold maps a small, closed set of Latin-1/Latin Extended-A
// letters to the ASCII sequence their NFKD compatibility decomposition
// would produce (base letter, combining marks dropped by a later ASCII
// filter; digraphs expanded). This stands in for
// golang.org/x/text/unicode/norm, which no repo in the reference corpus
// imports directly for text normalization — see DESIGN.md.
var compatibilityFold = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u",
	'ý': "y", 'ÿ': "y",
	'ñ': "n", 'ç': "c",
	'æ': "ae", 'œ': "oe", 'ß': "ss",
	'À': "a", 'Á': "a", 'Â': "a", 'Ã': "a", 'Ä': "a", 'Å': "a",
	'È': "e", 'É': "e", 'Ê': "e", 'Ë': "e",
	'Ì': "i", 'Í': "i", 'Î': "i", 'Ï': "i",
	'Ò': "o", 'Ó': "o", 'Ô': "o", 'Õ': "o", 'Ö': "o",
	'Ù': "u", 'Ú': "u", 'Û': "u", 'Ü': "u",
	'Ý': "y", 'Ñ': "n", 'Ç': "c",
	'Æ': "AE", 'Œ': "OE",
}

// Normalize runs the first three canonicalization steps: NFKD-style
// fold, lowercase, substitute. It does not apply a final ASCII filter,
// since callers that need whitespace-preserving variants (fuzzy query
// normalization) filter differently.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if folded, ok := compatibilityFold[r]; ok {
			b.WriteString(folded)
			continue
		}
		b.WriteRune(r)
	}
	lowered := strings.ToLower(b.String())

	var out strings.Builder
	out.Grow(len(lowered))
	for _, r := range lowered {
		if sub, ok := substitution[r]; ok {
			out.WriteRune(sub)
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
