package keyderive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalString(t *testing.T) {
	require.Equal(t, "password", CanonicalString("Password"))
	require.Equal(t, "password", CanonicalString("P455word"))
	require.Equal(t, "best", CanonicalString("83$t"))
}

func TestDeriveKeys_Password(t *testing.T) {
	keys := DeriveKeys("password")
	require.NotEmpty(t, keys)
	assert.Equal(t, "pas", keys[0])
}

func TestDeriveKeys_NonASCIIOnly(t *testing.T) {
	keys := DeriveKeys("密碼")
	assert.Empty(t, keys)
}

func TestDeriveKeys_SubLength(t *testing.T) {
	assert.Empty(t, DeriveKeys("ab"))
	assert.Empty(t, DeriveKeys(""))
}

func TestDeriveKeys_OnlySubstitutedDigit(t *testing.T) {
	// "0" substitutes to "o", a single-character string: still sub-length.
	assert.Empty(t, DeriveKeys("0"))
}

func TestDeriveKeys_Deterministic(t *testing.T) {
	a := DeriveKeys("This is a big long sentence with a lot of words in it")
	b := DeriveKeys("This is a big long sentence with a lot of words in it")
	assert.Equal(t, a, b)
}

func TestDeriveKeys_PrimaryKeyMatchesCanonicalPrefix(t *testing.T) {
	line := "correcthorsebatterystaple"
	keys := DeriveKeys(line)
	require.NotEmpty(t, keys)
	s := CanonicalString(line)
	assert.Equal(t, s[:3], keys[0])
}

func TestDeriveKeys_NoDuplicateKeys(t *testing.T) {
	keys := DeriveKeys("This is a big long sentence with a lot of words in it")
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %q", k)
		seen[k] = true
	}
}

func TestIsSubsequence(t *testing.T) {
	assert.True(t, isSubsequence("abi", "abigail"))
	assert.True(t, isSubsequence("abi", "abcdefghi")) // non-contiguous
	assert.False(t, isSubsequence("xyz", "abcdef"))
	assert.True(t, isSubsequence("", "anything"))
}

func TestNormalize_Substitution(t *testing.T) {
	assert.Equal(t, "best", Normalize("83$t"))
	assert.Equal(t, "rate", Normalize("®a7e"))
}

func TestNormalize_CompatibilityFold(t *testing.T) {
	assert.Equal(t, "cafe", CanonicalString("café"))
	assert.Equal(t, "strasse", CanonicalString("straße"))
}

func TestIndexOf_IsAliasOfDeriveKeys(t *testing.T) {
	line := "hunter2"
	assert.Equal(t, DeriveKeys(line), IndexOf(line))
}
