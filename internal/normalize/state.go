package normalize

import "strings"

// StateNormalizer maps any spelling of the configured state to its code and
// blanks every other state.
type StateNormalizer struct {
	code      string
	shorthand string
}

// NewStateNormalizer builds a StateNormalizer for code. shorthand, when set,
// is also accepted verbatim.
func NewStateNormalizer(code, shorthand string) *StateNormalizer {
	return &StateNormalizer{code: code, shorthand: shorthand}
}

// Code returns the canonical state code.
func (s *StateNormalizer) Code() string { return s.code }

// Normalize returns the state code when state starts with it in any case, or
// equals the shorthand exactly. Otherwise it returns "".
func (s *StateNormalizer) Normalize(state string) string {
	if s.shorthand != "" && state == s.shorthand {
		return s.code
	}
	if len(state) >= len(s.code) && strings.EqualFold(state[:len(s.code)], s.code) {
		return s.code
	}
	return ""
}
