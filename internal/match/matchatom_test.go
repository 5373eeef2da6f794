package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWildcardMatch(t *testing.T) {
	cases := []struct {
		pattern, value string
		want           bool
	}{
		{"vim*", "vim-core", true},
		{"vim*", "gvim", false},
		{"*vim*", "gvim", true},
		{"vi?", "vim", true},
		{"vi?", "vi", false},
		{"*", "anything", true},
	}
	for _, c := range cases {
		require.Equal(t, c.want, wildcardMatch(c.pattern, c.value), "pattern=%q value=%q", c.pattern, c.value)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	require.Equal(t, 0, LevenshteinDistance("vim", "vim"))
	require.Equal(t, 1, LevenshteinDistance("vim", "vimm"))
	require.Equal(t, 3, LevenshteinDistance("kitten", "sitting"))
}

func TestFuzzyLeaf(t *testing.T) {
	leaf, err := Leaf(SelectName, AlgoFuzzy, "vim", 1)
	require.NoError(t, err)

	ok, err := leaf.Match(&Candidate{Name: "vimm"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = leaf.Match(&Candidate{Name: "neovim"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegexLeafInvalidPattern(t *testing.T) {
	_, err := Leaf(SelectName, AlgoRegex, "(unclosed", 0)
	require.ErrorIs(t, err, BadExpression)
}

func TestUseSelectorMatchesAnyFlag(t *testing.T) {
	leaf, err := Leaf(SelectUse, AlgoExact, "x11", 0)
	require.NoError(t, err)

	ok, err := leaf.Match(&Candidate{Use: []string{"gtk", "x11"}})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCategoryNameSelectorJoinsBothFields(t *testing.T) {
	leaf, err := Leaf(SelectCategoryName, AlgoExact, "app-editors/vim", 0)
	require.NoError(t, err)

	ok, err := leaf.Match(&Candidate{Category: "app-editors", Name: "vim"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = leaf.Match(&Candidate{Category: "app-editors", Name: "emacs"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDuplicateVersionsSelectorIgnoresPattern(t *testing.T) {
	leaf, err := Leaf(SelectDuplicateVersions, AlgoExact, "", 0)
	require.NoError(t, err)

	ok, err := leaf.Match(&Candidate{Duplicated: true})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = leaf.Match(&Candidate{Duplicated: false})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUserConfigRedundantSelectorIgnoresPattern(t *testing.T) {
	leaf, err := Leaf(SelectUserConfigRedundant, AlgoExact, "", 0)
	require.NoError(t, err)

	ok, err := leaf.Match(&Candidate{Redundant: true})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = leaf.Match(&Candidate{Redundant: false})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestShortCircuitAndSkipsSecondOperand(t *testing.T) {
	// A leaf with an unknown algorithm would error if evaluated; placing it
	// second in an AND behind a false first operand must never run it.
	falseLeaf, err := Leaf(SelectName, AlgoExact, "nomatch", 0)
	require.NoError(t, err)
	neverLeaf := &Matchatom{Kind: KindLeaf, Selector: SelectName, Algorithm: Algorithm(99)}

	tree := And(falseLeaf, neverLeaf)
	ok, err := tree.Match(&Candidate{Name: "vim"})
	require.NoError(t, err)
	require.False(t, ok)
}
