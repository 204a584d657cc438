package quote

import (
	"testing"

	"github.com/stretchr/testify/require"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
)

func sp(s string) *string { return &s }

func TestApplyResultsSeedsDescriptions(t *testing.T) {
	var s SearchState
	gen := s.Begin()
	require.Equal(t, SearchLoading, s.Phase)

	matches := []SimilarMatch{
		{Filename: "a.jpg", Similarity: 0.92, SuggestedDescription: sp("Vaso térmico")},
		{Filename: "b.jpg", Similarity: 0.81},
		{Filename: "c.jpg", Similarity: 0.77, SuggestedDescription: sp("Botella deportiva")},
	}
	require.True(t, s.ApplyResults(gen, matches))
	require.Equal(t, SearchPopulated, s.Phase)
	require.Equal(t, "Vaso térmico", s.Descriptions["a.jpg"])
	require.Equal(t, "", s.Descriptions["b.jpg"], "missing suggestion seeds empty string")
	require.Equal(t, "Botella deportiva", s.Descriptions["c.jpg"])
}

func TestZeroResultsDistinctFromFailure(t *testing.T) {
	var s SearchState
	gen := s.Begin()
	require.True(t, s.ApplyResults(gen, nil))
	require.Equal(t, SearchEmpty, s.Phase)
	require.Equal(t, MsgNoMatches, s.Message)

	gen = s.Begin()
	require.True(t, s.Fail(gen))
	require.Equal(t, SearchEmpty, s.Phase)
	require.Equal(t, MsgSearchFailed, s.Message)

	require.NotEqual(t, MsgNoMatches, MsgSearchFailed)
}

func TestStaleCompletionIsDropped(t *testing.T) {
	var s SearchState
	old := s.Begin()
	cur := s.Begin() // supersedes the first search

	require.False(t, s.ApplyResults(old, []SimilarMatch{{Filename: "stale.jpg"}}))
	require.Equal(t, SearchLoading, s.Phase, "stale completion must not overwrite state")
	require.False(t, s.Fail(old))

	require.True(t, s.ApplyResults(cur, []SimilarMatch{{Filename: "fresh.jpg"}}))
	require.Equal(t, SearchPopulated, s.Phase)
	require.Equal(t, "fresh.jpg", s.Matches[0].Filename)
}

func TestResetDiscardsEverything(t *testing.T) {
	var s SearchState
	gen := s.Begin()
	require.True(t, s.ApplyResults(gen, []SimilarMatch{{Filename: "a.jpg", SuggestedDescription: sp("x")}}))

	s.Reset()
	require.Equal(t, SearchIdle, s.Phase)
	require.Empty(t, s.Matches)
	require.Empty(t, s.Descriptions)
	require.Empty(t, s.Message)

	// the old generation is gone after reset as well
	require.False(t, s.ApplyResults(gen, []SimilarMatch{{Filename: "late.jpg"}}))
	require.Equal(t, SearchIdle, s.Phase)
}

func TestSetDescription(t *testing.T) {
	var s SearchState
	gen := s.Begin()
	require.True(t, s.ApplyResults(gen, []SimilarMatch{{Filename: "a.jpg", SuggestedDescription: sp("sugerida")}}))

	require.NoError(t, s.SetDescription("a.jpg", "editada"))
	require.Equal(t, "editada", s.Descriptions["a.jpg"])

	err := s.SetDescription("nope.jpg", "x")
	require.True(t, errx.IsValidation(err))

	s.Reset()
	err = s.SetDescription("a.jpg", "x")
	require.True(t, errx.IsValidation(err), "no edits outside the populated phase")
}

func TestDescriptionForPrefersEditedValue(t *testing.T) {
	var s SearchState
	m := SimilarMatch{Filename: "a.jpg", SuggestedDescription: sp("  sugerida  ")}
	gen := s.Begin()
	require.True(t, s.ApplyResults(gen, []SimilarMatch{m}))

	require.NoError(t, s.SetDescription("a.jpg", " editada "))
	require.Equal(t, "editada", s.DescriptionFor(m))

	var fresh SearchState
	require.Equal(t, "sugerida", fresh.DescriptionFor(m), "falls back to the suggestion when nothing was seeded")
}
