package normalize

import (
	"regexp"
	"strconv"
)

var streetTypeRe = regexp.MustCompile(`\b\S+\.?$`)

// SuffixNormalizer expands abbreviated street suffixes.
type SuffixNormalizer struct {
	expected map[string]struct{}
	mapping  map[string]string
}

// NewSuffixNormalizer builds a SuffixNormalizer from the accepted suffixes and
// the abbreviation mapping. The inputs are copied.
func NewSuffixNormalizer(expected []string, mapping map[string]string) *SuffixNormalizer {
	s := &SuffixNormalizer{
		expected: make(map[string]struct{}, len(expected)),
		mapping:  make(map[string]string, len(mapping)),
	}
	for _, e := range expected {
		s.expected[e] = struct{}{}
	}
	for k, v := range mapping {
		s.mapping[k] = v
	}
	return s
}

// StreetType returns the trailing token of a street name, if any.
func StreetType(name string) (string, bool) {
	loc := streetTypeRe.FindStringIndex(name)
	if loc == nil {
		return "", false
	}
	return name[loc[0]:loc[1]], true
}

// Expected reports whether token is an accepted suffix.
func (s *SuffixNormalizer) Expected(token string) bool {
	_, ok := s.expected[token]
	return ok
}

// Normalize replaces a mapped trailing suffix with its full form. Names with
// no trailing token, a numeric token, an accepted suffix or an unknown token
// are returned unchanged.
func (s *SuffixNormalizer) Normalize(name string) string {
	loc := streetTypeRe.FindStringIndex(name)
	if loc == nil {
		return name
	}
	token := name[loc[0]:loc[1]]

	if _, err := strconv.Atoi(token); err == nil {
		return name
	}
	if s.Expected(token) {
		return name
	}
	full, ok := s.mapping[token]
	if !ok {
		return name
	}
	return name[:loc[0]] + full + name[loc[1]:]
}
