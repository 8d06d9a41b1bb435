package normalize

import (
	"slices"
	"strings"
)

const postcodeLen = 5

// PostcodeNormalizer reduces postal codes to the five-character form and
// blanks codes outside the accepted prefixes.
type PostcodeNormalizer struct {
	prefixes []string
	region   string
}

// NewPostcodeNormalizer builds a PostcodeNormalizer. region may be empty.
func NewPostcodeNormalizer(prefixes []string, region string) *PostcodeNormalizer {
	return &PostcodeNormalizer{
		prefixes: slices.Clone(prefixes),
		region:   region,
	}
}

func (p *PostcodeNormalizer) accepted(code string) bool {
	if len(code) < 2 {
		return false
	}
	return slices.Contains(p.prefixes, code[:2])
}

// Valid reports whether code is already canonical: five characters with an
// accepted prefix.
func (p *PostcodeNormalizer) Valid(code string) bool {
	return len(code) == postcodeLen && p.accepted(code)
}

// Normalize applies, in order: region prefix removal, ZIP+4 truncation,
// rejection of short or out-of-area codes, truncation at a space, and
// rejection of anything else longer than five characters.
func (p *PostcodeNormalizer) Normalize(code string) string {
	code = p.stripRegion(code)

	switch {
	case len(code) == 10 && p.accepted(code):
		return code[:postcodeLen]
	case len(code) < postcodeLen || !p.accepted(code):
		return ""
	case len(code) > postcodeLen && code[postcodeLen] == ' ':
		return code[:postcodeLen]
	case len(code) > postcodeLen:
		return ""
	}
	return code
}

func (p *PostcodeNormalizer) stripRegion(code string) string {
	n := len(p.region)
	if n == 0 || len(code) <= n {
		return code
	}
	if !strings.EqualFold(code[:n], p.region) {
		return code
	}
	switch code[n] {
	case ' ', '-', ',':
		return strings.TrimSpace(code[n+1:])
	}
	return code
}
