package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuffix_IntegerTokenUnchanged(t *testing.T) {
	s := New(DefaultRules()).Suffix
	for _, in := range []string{"Route 9", "Highway 128", "Interstate 93", "US 1"} {
		assert.Equal(t, in, s.Normalize(in), in)
	}
}

func TestSuffix_ExpectedUnchangedAndIdempotent(t *testing.T) {
	s := New(DefaultRules()).Suffix
	for _, suffix := range DefaultRules().ExpectedSuffixes {
		in := "12 Elm " + suffix
		once := s.Normalize(in)
		assert.Equal(t, in, once)
		assert.Equal(t, once, s.Normalize(once))
	}
}

func TestSuffix_Substitution(t *testing.T) {
	s := New(DefaultRules()).Suffix
	tests := []struct {
		in, want string
	}{
		{"123 Main St", "123 Main Street"},
		{"123 Main St.", "123 Main Street"},
		{"Massachusetts Ave", "Massachusetts Avenue"},
		{"Commonwealth Ave.", "Commonwealth Avenue"},
		{"Stuart  St", "Stuart  Street"},
		{"St Botolph St", "St Botolph Street"},
		{"Harvard Rd", "Harvard Road"},
		{"Memorial Dr", "Memorial Drive"},
		{"Soldiers Field Pkwy", "Soldiers Field Parkway"},
		{"Old Colony Cres", "Old Colony Crescent"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := s.Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, s.Normalize(got))
		})
	}
}

func TestSuffix_UnknownUnchanged(t *testing.T) {
	s := New(DefaultRules()).Suffix
	for _, in := range []string{"Broadway", "Faneuil Hall Marketplace", "", "   ", "Elm St ."} {
		assert.Equal(t, in, s.Normalize(in), "%q", in)
	}
}

func TestSuffix_InjectedTables(t *testing.T) {
	s := NewSuffixNormalizer([]string{"Gata"}, map[string]string{"g.": "Gata"})
	assert.Equal(t, "Storgata", s.Normalize("Storgata"))
	assert.Equal(t, "Kongens Gata", s.Normalize("Kongens g."))
	assert.Equal(t, "Main St", s.Normalize("Main St"))
}

func TestStreetType(t *testing.T) {
	tok, ok := StreetType("123 Main St.")
	require.True(t, ok)
	assert.Equal(t, "St.", tok)

	_, ok = StreetType("")
	assert.False(t, ok)
}

func TestPostcode(t *testing.T) {
	p := New(DefaultRules()).Postcode
	tests := []struct {
		in, want string
	}{
		{"02118", "02118"},
		{"01890", "01890"},
		{"MA 02118", "02118"},
		{"Ma 02118", "02118"},
		{"ma-02118", "02118"},
		{"MA, 02139", "02139"},
		{"02136-2460", "02136"},
		{"02136 2460", "02136"},
		{"02134-12", ""},
		{"02118-", ""},
		{"02118-123456", ""},
		{"021345", ""},
		{"03079", ""},
		{"(617) 495-1000", ""},
		{"0211", ""},
		{"", ""},
		{"MA02118", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Normalize(tt.in))
		})
	}
}

func TestPostcode_AcceptedUnchanged(t *testing.T) {
	p := New(DefaultRules()).Postcode
	for _, code := range []string{"01001", "01999", "02000", "02999"} {
		assert.True(t, p.Valid(code))
		assert.Equal(t, code, p.Normalize(code))
	}
	assert.False(t, p.Valid("03079"))
	assert.False(t, p.Valid("02136-2460"))
}

func TestPostcode_NoRegion(t *testing.T) {
	p := NewPostcodeNormalizer([]string{"10"}, "")
	assert.Equal(t, "10001", p.Normalize("10001"))
	assert.Equal(t, "", p.Normalize("NY 10001"))
}

func TestState(t *testing.T) {
	s := New(DefaultRules()).State
	tests := []struct {
		in, want string
	}{
		{"MA", "MA"},
		{"ma", "MA"},
		{"Ma", "MA"},
		{"Mass", "MA"},
		{"Massachusetts", "MA"},
		{"M", "MA"},
		{"m", ""},
		{"New York", ""},
		{"NH", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			once := s.Normalize(tt.in)
			assert.Equal(t, tt.want, once)
			assert.Equal(t, once, s.Normalize(once))
		})
	}
	assert.Equal(t, "MA", s.Code())
}

func TestNormalizer_Routing(t *testing.T) {
	n := New(DefaultRules())

	v, rule := n.Normalize("street", "123 Main St")
	assert.Equal(t, "123 Main Street", v)
	assert.Equal(t, RuleStreet, rule)

	v, rule = n.Normalize("postcode", "MA 02118")
	assert.Equal(t, "02118", v)
	assert.Equal(t, RulePostcode, rule)

	v, rule = n.Normalize("state", "Mass")
	assert.Equal(t, "MA", v)
	assert.Equal(t, RuleState, rule)

	v, rule = n.Normalize("name", "Main St")
	assert.Equal(t, "Main St", v)
	assert.Equal(t, RuleNone, rule)

	v, _ = n.Normalize("addr:street", "Main St")
	assert.Equal(t, "Main St", v, "keys are routed after namespace split")
}

func TestDefaultRules_FreshCopies(t *testing.T) {
	a := DefaultRules()
	a.SuffixMapping["St"] = "Saint"
	a.ExpectedSuffixes[0] = "Nope"

	b := DefaultRules()
	assert.Equal(t, "Street", b.SuffixMapping["St"])
	assert.Equal(t, "Street", b.ExpectedSuffixes[0])
}
