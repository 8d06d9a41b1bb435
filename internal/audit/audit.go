// Package audit surveys address tags and tag keys in a document without
// changing them, reporting the values the normalizers would repair.
package audit

import (
	"cmp"
	"iter"
	"regexp"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-audit/internal/model"
	"github.com/sells-group/osm-audit/internal/normalize"
)

// Raw tag keys inspected by the auditor.
const (
	StreetKey   = "addr:street"
	PostcodeKey = "addr:postcode"
	StateKey    = "addr:state"
)

// Key classes counted by the auditor.
const (
	KeyLower        = "lower"
	KeyLowerColon   = "lower_colon"
	KeyProblemChars = "problemchars"
	KeyOther        = "other"
)

var (
	lowerRe        = regexp.MustCompile(`^([a-z]|_)*$`)
	lowerColonRe   = regexp.MustCompile(`^([a-z]|_)*:([a-z]|_)*$`)
	problemCharsRe = regexp.MustCompile(`[=\+/&<>;'"\?%#$@\,\. \t\r\n]`)
)

// ClassifyKey returns the class of a raw tag key.
func ClassifyKey(k string) string {
	switch {
	case lowerRe.MatchString(k):
		return KeyLower
	case lowerColonRe.MatchString(k):
		return KeyLowerColon
	case problemCharsRe.MatchString(k):
		return KeyProblemChars
	}
	return KeyOther
}

// Finding is one distinct value that failed a check.
type Finding struct {
	Value    string `yaml:"value" json:"value"`
	Count    int    `yaml:"count" json:"count"`
	Proposed string `yaml:"proposed" json:"proposed"`
}

// StreetType groups street names sharing an unexpected trailing token.
type StreetType struct {
	Token string    `yaml:"token" json:"token"`
	Names []Finding `yaml:"names" json:"names"`
}

// Report is the result of an audit pass.
type Report struct {
	Elements    int            `yaml:"elements" json:"elements"`
	Tags        int            `yaml:"tags" json:"tags"`
	StreetTypes []StreetType   `yaml:"street_types" json:"street_types"`
	Postcodes   []Finding      `yaml:"postcodes" json:"postcodes"`
	States      []Finding      `yaml:"states" json:"states"`
	KeyTypes    map[string]int `yaml:"key_types" json:"key_types"`
}

// Auditor accumulates findings across elements. It is not safe for
// concurrent use.
type Auditor struct {
	norm *normalize.Normalizer

	elements    int
	tags        int
	streetTypes map[string]map[string]int
	postcodes   map[string]int
	states      map[string]int
	keyTypes    map[string]int
}

// New creates an Auditor that proposes corrections with norm.
func New(norm *normalize.Normalizer) *Auditor {
	return &Auditor{
		norm:        norm,
		streetTypes: make(map[string]map[string]int),
		postcodes:   make(map[string]int),
		states:      make(map[string]int),
		keyTypes: map[string]int{
			KeyLower:        0,
			KeyLowerColon:   0,
			KeyProblemChars: 0,
			KeyOther:        0,
		},
	}
}

// Add inspects the tags of one element.
func (a *Auditor) Add(el *model.Element) {
	a.elements++
	for _, tag := range el.Tags {
		k, ok := tag.Attrs.Get("k")
		if !ok {
			continue
		}
		v, _ := tag.Attrs.Get("v")
		a.tags++
		a.keyTypes[ClassifyKey(k)]++

		switch k {
		case StreetKey:
			a.street(v)
		case PostcodeKey:
			if !a.norm.Postcode.Valid(v) {
				a.postcodes[v]++
			}
		case StateKey:
			if v != a.norm.State.Code() {
				a.states[v]++
			}
		}
	}
}

func (a *Auditor) street(name string) {
	token, ok := normalize.StreetType(name)
	if !ok || a.norm.Suffix.Expected(token) {
		return
	}
	names, ok := a.streetTypes[token]
	if !ok {
		names = make(map[string]int)
		a.streetTypes[token] = names
	}
	names[name]++
}

// Run audits every element of seq.
func (a *Auditor) Run(seq iter.Seq2[*model.Element, error]) (Report, error) {
	for el, err := range seq {
		if err != nil {
			return Report{}, eris.Wrap(err, "audit: read source")
		}
		a.Add(el)
	}
	return a.Report(), nil
}

// Report returns the findings so far, sorted by descending count then value.
func (a *Auditor) Report() Report {
	r := Report{
		Elements: a.elements,
		Tags:     a.tags,
		KeyTypes: make(map[string]int, len(a.keyTypes)),
	}
	for k, v := range a.keyTypes {
		r.KeyTypes[k] = v
	}

	for token, names := range a.streetTypes {
		r.StreetTypes = append(r.StreetTypes, StreetType{
			Token: token,
			Names: findings(names, a.norm.Suffix.Normalize),
		})
	}
	slices.SortFunc(r.StreetTypes, func(x, y StreetType) int {
		return cmp.Compare(x.Token, y.Token)
	})

	r.Postcodes = findings(a.postcodes, a.norm.Postcode.Normalize)
	r.States = findings(a.states, a.norm.State.Normalize)
	return r
}

func findings(counts map[string]int, propose func(string) string) []Finding {
	out := make([]Finding, 0, len(counts))
	for v, n := range counts {
		out = append(out, Finding{Value: v, Count: n, Proposed: propose(v)})
	}
	slices.SortFunc(out, func(x, y Finding) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Value, y.Value)
	})
	return out
}
