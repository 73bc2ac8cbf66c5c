package querynorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subsetgrep/subsetgrep/keyconfig"
)

func TestAsSearchString_Strict(t *testing.T) {
	assert.Equal(t, "P455word!", AsSearchString("P455word!", keyconfig.StyleStrict))
}

func TestAsSearchString_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "p455word!", AsSearchString("P455word!", keyconfig.StyleCaseInsensitive))
}

func TestAsSearchString_CaseInsensitivePreservesPunctuation(t *testing.T) {
	assert.Equal(t, "hello, world!", AsSearchString("Hello, World!", keyconfig.StyleCaseInsensitive))
}

func TestAsSearchString_Fuzzy(t *testing.T) {
	assert.Equal(t, "best it", AsSearchString("83$t !t", keyconfig.StyleFuzzy))
}

func TestAsSearchString_FuzzyCollapsesRunsAndTrims(t *testing.T) {
	// 'l' and '!' both substitute to 'i'.
	assert.Equal(t, "heiio woridii", AsSearchString("  Hello,,,   World!!  ", keyconfig.StyleFuzzy))
}

func TestAsSearchString_UnknownStyleFallsBackToUnchanged(t *testing.T) {
	assert.Equal(t, "abc", AsSearchString("abc", keyconfig.SearchStyle("bogus")))
}

func TestPrimaryKey_MatchesDeriveKeysPrimary(t *testing.T) {
	key, ok := PrimaryKey("password")
	require.True(t, ok)
	assert.Equal(t, "pas", key)
}

func TestPrimaryKey_SubLengthIsUnanswerable(t *testing.T) {
	_, ok := PrimaryKey("ab")
	assert.False(t, ok)
}

func TestPrimaryKey_EmptyQuery(t *testing.T) {
	_, ok := PrimaryKey("")
	assert.False(t, ok)
}

func TestPrimaryKey_IgnoresSearchStyleSubstitutions(t *testing.T) {
	// Primary key always derives from the full 4.A pipeline on the raw
	// query, independent of the requested search style.
	key, ok := PrimaryKey("P455word")
	require.True(t, ok)
	assert.Equal(t, "pas", key)
}
