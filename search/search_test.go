package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subsetgrep/subsetgrep/keyconfig"
)

func writeShard(t *testing.T, dir, key, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subset_"+key+".csv"), []byte(content), 0o644))
}

func TestFindLines_StrictMatch(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, "pas", "mypassword\npassword\npassword1\n")

	e := New(dir)
	defer e.Close()

	lines, cacheHit, err := e.FindLines(context.Background(), "password", keyconfig.StyleStrict)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, []string{"mypassword", "password", "password1"}, lines)
}

func TestFindLines_UnknownStyleReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	defer e.Close()

	lines, cacheHit, err := e.FindLines(context.Background(), "password", keyconfig.SearchStyle("bogus"))
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Empty(t, lines)
}

func TestFindLines_SubLengthQueryReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	defer e.Close()

	lines, cacheHit, err := e.FindLines(context.Background(), "ab", keyconfig.StyleStrict)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Empty(t, lines)
}

func TestFindLines_MissingShardReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	defer e.Close()

	lines, cacheHit, err := e.FindLines(context.Background(), "password", keyconfig.StyleStrict)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Empty(t, lines)
}

func TestFindLines_CachesResult(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, "pas", "password\n")

	e := New(dir)
	defer e.Close()

	first, firstHit, err := e.FindLines(context.Background(), "password", keyconfig.StyleStrict)
	require.NoError(t, err)
	assert.False(t, firstHit)

	// Remove the shard; a cache hit should still return the earlier result.
	require.NoError(t, os.Remove(filepath.Join(dir, "subset_pas.csv")))

	second, secondHit, err := e.FindLines(context.Background(), "password", keyconfig.StyleStrict)
	require.NoError(t, err)
	assert.True(t, secondHit)
	assert.Equal(t, first, second)
}

func TestFindLines_FuzzyCollapsesSubstitutions(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, "pas", "password\n")

	e := New(dir)
	defer e.Close()

	lines, cacheHit, err := e.FindLines(context.Background(), "P455word", keyconfig.StyleFuzzy)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, []string{"password"}, lines)
}

func TestPage_EndOfResultsSurfaced(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	defer e.Close()

	_, err := e.Page([]string{"a"}, 5, 10)
	assert.ErrorIs(t, err, ErrEndOfResults)
}
