package normalize

// Rule names the normalizer a tag key routes to.
type Rule string

const (
	RuleNone     Rule = ""
	RuleStreet   Rule = "street"
	RulePostcode Rule = "postcode"
	RuleState    Rule = "state"
)

// Normalizer routes tag values to the street, postcode and state normalizers
// by their post-split key.
type Normalizer struct {
	Suffix   *SuffixNormalizer
	Postcode *PostcodeNormalizer
	State    *StateNormalizer
}

// New builds a Normalizer from rules.
func New(rules Rules) *Normalizer {
	return &Normalizer{
		Suffix:   NewSuffixNormalizer(rules.ExpectedSuffixes, rules.SuffixMapping),
		Postcode: NewPostcodeNormalizer(rules.PostcodePrefixes, rules.RegionPrefix),
		State:    NewStateNormalizer(rules.StateCode, rules.StateShorthand),
	}
}

// RuleFor returns the rule that applies to key.
func RuleFor(key string) Rule {
	switch key {
	case "street":
		return RuleStreet
	case "postcode":
		return RulePostcode
	case "state":
		return RuleState
	}
	return RuleNone
}

// Normalize returns the normalized value for a tag and the rule applied.
// Keys without a rule pass through unchanged.
func (n *Normalizer) Normalize(key, value string) (string, Rule) {
	rule := RuleFor(key)
	switch rule {
	case RuleStreet:
		return n.Suffix.Normalize(value), rule
	case RulePostcode:
		return n.Postcode.Normalize(value), rule
	case RuleState:
		return n.State.Normalize(value), rule
	}
	return value, rule
}
