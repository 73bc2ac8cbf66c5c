package wordtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigrams_NonEmpty(t *testing.T) {
	require.NotEmpty(t, Trigrams())
}

func TestTrigrams_AllThreeChars(t *testing.T) {
	for _, tg := range Trigrams() {
		assert.Len(t, tg, 3)
	}
}

func TestTrigrams_NoDuplicates(t *testing.T) {
	seen := make(map[string]bool)
	for _, tg := range Trigrams() {
		assert.False(t, seen[tg], "duplicate trigram %q", tg)
		seen[tg] = true
	}
}

func TestTrigrams_StableOrderAndContent(t *testing.T) {
	a := Trigrams()
	b := Trigrams()
	assert.Equal(t, a, b)
}

func TestSize(t *testing.T) {
	assert.Equal(t, len(Trigrams()), Size())
}
