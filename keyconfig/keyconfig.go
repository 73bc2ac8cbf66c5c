// Package keyconfig holds the compile-time-constant knobs shared by the
// indexer and the query engine. Both sides must agree on these values:
// a query's primary key must land on the same shard a matching corpus
// line was written to.
package keyconfig

// IndexLength is the length, in characters, of a primary or secondary
// shard key.
const IndexLength = 3

// IndexDepth names the number of secondary keys per common word. It is
// not read by wordtable or keyderive: the word table always holds only
// the first trigram of each common word, which matches the value 1.
const IndexDepth = 1

// MaxIndexBufferSize is the per-key in-memory buffer threshold, in
// bytes, before the shard writer flushes to disk.
const MaxIndexBufferSize = 1 << 16

// SearchStyle governs query normalization.
type SearchStyle string

const (
	StyleStrict          SearchStyle = "strict"
	StyleCaseInsensitive SearchStyle = "case-insensitive"
	StyleFuzzy           SearchStyle = "fuzzy"
)

// ValidStyle reports whether s is one of the known search styles.
func ValidStyle(s SearchStyle) bool {
	switch s {
	case StyleStrict, StyleCaseInsensitive, StyleFuzzy:
		return true
	default:
		return false
	}
}
