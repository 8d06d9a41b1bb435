// Package normalize repairs free-text address fragments: street suffix
// abbreviations, postal codes and state codes.
package normalize

import "maps"

// Rules holds the lookup tables used by the normalizers. Tables are read-only
// once handed to New.
type Rules struct {
	// ExpectedSuffixes are accepted street suffixes, matched case-sensitively.
	ExpectedSuffixes []string
	// SuffixMapping maps an abbreviated or misspelled suffix to its full form.
	SuffixMapping map[string]string
	// PostcodePrefixes are the accepted two-character postcode prefixes.
	PostcodePrefixes []string
	// RegionPrefix is stripped from the front of a postcode when followed by
	// a separator, e.g. "MA 02118".
	RegionPrefix string
	// StateCode is the canonical state code.
	StateCode string
	// StateShorthand is accepted as an exact, case-sensitive alias of StateCode.
	StateShorthand string
}

var defaultExpected = []string{
	"Street", "Avenue", "Boulevard", "Drive", "Court", "Place", "Square", "Lane", "Road",
	"Trail", "Parkway", "Commons", "Way", "Circle", "Terrace", "Bend", "Manor", "Run",
	"Highway", "Isle", "Hollow", "Cove", "Lake", "Trace", "Crescent",
}

var defaultMapping = map[string]string{
	"St":     "Street",
	"St.":    "Street",
	"ST":     "Street",
	"st":     "Street",
	"street": "Street",
	"Rd.":    "Road",
	"Rd":     "Road",
	"RD":     "Road",
	"Ave":    "Avenue",
	"Ave.":   "Avenue",
	"AVE":    "Avenue",
	"ave":    "Avenue",
	"Blvd":   "Boulevard",
	"BLVD":   "Boulevard",
	"Blvd.":  "Boulevard",
	"Cir":    "Circle",
	"Cirlce": "Circle",
	"Ct":     "Court",
	"Dr":     "Drive",
	"Dr.":    "Drive",
	"DRIVE":  "Drive",
	"Druve":  "Drive",
	"Trl":    "Trail",
	"Ter":    "Terrace",
	"Pl":     "Place",
	"Pkwy":   "Parkway",
	"Bnd":    "Bend",
	"Mnr":    "Manor",
	"Ln":     "Lane",
	"Cv":     "Cove",
	"Holw":   "Hollow",
	"Hwy":    "Highway",
	"HWY":    "Highway",
	"Pt":     "Point",
	"Trce":   "Trace",
	"Cres":   "Crescent",
}

// DefaultRules returns the Massachusetts rule set. Each call returns fresh
// copies of the tables.
func DefaultRules() Rules {
	return Rules{
		ExpectedSuffixes: append([]string(nil), defaultExpected...),
		SuffixMapping:    maps.Clone(defaultMapping),
		PostcodePrefixes: []string{"01", "02"},
		RegionPrefix:     "MA",
		StateCode:        "MA",
		StateShorthand:   "M",
	}
}
