// Package wordtable holds an immutable, process-lifetime ordered set
// of trigrams derived from a bundled list of common English words,
// used by keyderive to contribute secondary shard keys.
//
// The bundled list is embedded at build time via go:embed and must
// stay byte-for-byte identical between an indexer run and every query
// process that reads its output — it is loaded once and never
// reloaded per query.
package wordtable

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/subsetgrep/subsetgrep/keyconfig"
	"github.com/subsetgrep/subsetgrep/textfold"
)

//go:embed words.txt
var rawWords string

var (
	once     sync.Once
	trigrams []string
)

// foldWord runs the same normalize+filter steps keyderive applies to
// corpus lines, so that a word and a line containing it fold to the
// same canonical form.
func foldWord(w string) string {
	normalized := textfold.Normalize(w)
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func build() {
	lines := strings.Split(rawWords, "\n")
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		word := strings.TrimSpace(line)
		if word == "" {
			continue
		}
		folded := foldWord(word)
		if len(folded) < keyconfig.IndexLength {
			continue
		}
		key := folded[:keyconfig.IndexLength]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	trigrams = out
}

// Trigrams returns the ordered, de-duplicated list of common-word
// trigrams. Iteration order is the order secondary keys are considered
// for a line.
func Trigrams() []string {
	once.Do(build)
	return trigrams
}

// Size returns the number of distinct trigrams in the table.
func Size() int {
	return len(Trigrams())
}
