package quote

import (
	"strings"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
)

// SearchPhase is the discriminant of the search result state. Exactly one
// phase holds at a time.
type SearchPhase string

const (
	SearchIdle      SearchPhase = "idle"
	SearchLoading   SearchPhase = "loading"
	SearchEmpty     SearchPhase = "empty"
	SearchPopulated SearchPhase = "populated"
)

const (
	// MsgNoMatches signals zero results, which is informational and must
	// stay distinct from a backend failure.
	MsgNoMatches = "no matches found for this image"
	// MsgSearchFailed is the generic message for a failed search call.
	MsgSearchFailed = "similarity search failed, try again"
	// MsgSelectImage rejects a search without a staged image.
	MsgSelectImage = "select an image first"
	// MsgUnknownResult rejects description edits for filenames outside the
	// current result set.
	MsgUnknownResult = "unknown search result"
)

// SearchState holds the three-way result state of the similarity search
// plus the per-result editable descriptions seeded from the backend's
// suggestions. Generation guards against a superseded in-flight search
// overwriting newer state.
type SearchState struct {
	Phase        SearchPhase       `json:"phase"`
	Message      string            `json:"message,omitempty"`
	Matches      []SimilarMatch    `json:"matches,omitempty"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
	Generation   uint64            `json:"generation"`
}

// Reset discards results, messages and seeded descriptions and bumps the
// generation so any in-flight search completion is dropped.
func (s *SearchState) Reset() {
	s.Generation++
	s.Phase = SearchIdle
	s.Message = ""
	s.Matches = nil
	s.Descriptions = nil
}

// Begin marks a new search as current and returns its generation token.
// Only the completion carrying this token may apply a result.
func (s *SearchState) Begin() uint64 {
	s.Generation++
	s.Phase = SearchLoading
	s.Message = ""
	s.Matches = nil
	s.Descriptions = nil
	return s.Generation
}

// ApplyResults installs the outcome of the search identified by gen.
// Zero matches yield the empty state with the no-matches message. A stale
// gen is ignored and reported as not applied.
func (s *SearchState) ApplyResults(gen uint64, matches []SimilarMatch) bool {
	if gen != s.Generation {
		return false
	}
	if len(matches) == 0 {
		s.Phase = SearchEmpty
		s.Message = MsgNoMatches
		s.Matches = nil
		s.Descriptions = nil
		return true
	}

	desc := make(map[string]string, len(matches))
	for _, m := range matches {
		if m.SuggestedDescription != nil {
			desc[m.Filename] = *m.SuggestedDescription
		} else {
			desc[m.Filename] = ""
		}
	}
	s.Phase = SearchPopulated
	s.Message = ""
	s.Matches = matches
	s.Descriptions = desc
	return true
}

// Fail installs the generic failure state for the search identified by
// gen. A stale gen is ignored.
func (s *SearchState) Fail(gen uint64) bool {
	if gen != s.Generation {
		return false
	}
	s.Phase = SearchEmpty
	s.Message = MsgSearchFailed
	s.Matches = nil
	s.Descriptions = nil
	return true
}

// SetDescription edits the seeded description of one result prior to it
// being added to the cart.
func (s *SearchState) SetDescription(filename, text string) error {
	if s.Phase != SearchPopulated {
		return errx.Validation(MsgUnknownResult)
	}
	if _, ok := s.Descriptions[filename]; !ok {
		return errx.Validation(MsgUnknownResult)
	}
	s.Descriptions[filename] = text
	return nil
}

// MatchByFilename returns the current match with the given catalog key.
func (s *SearchState) MatchByFilename(filename string) (SimilarMatch, bool) {
	for _, m := range s.Matches {
		if m.Filename == filename {
			return m, true
		}
	}
	return SimilarMatch{}, false
}

// DescriptionFor resolves the description to commit for a match: the
// edited value when one was seeded, else the backend suggestion.
func (s *SearchState) DescriptionFor(m SimilarMatch) string {
	if d, ok := s.Descriptions[m.Filename]; ok {
		return strings.TrimSpace(d)
	}
	if m.SuggestedDescription != nil {
		return strings.TrimSpace(*m.SuggestedDescription)
	}
	return ""
}
