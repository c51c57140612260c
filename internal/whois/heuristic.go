package whois

import "strings"

// Verdict is the outcome of the keyword heuristic.
type Verdict int

const (
	Undetermined Verdict = iota
	LikelyResidential
	LikelyNonResidential
)

func (v Verdict) String() string {
	switch v {
	case LikelyResidential:
		return "likely-residential"
	case LikelyNonResidential:
		return "likely-non-residential"
	default:
		return "undetermined"
	}
}

// MarshalText encodes the verdict as its string form.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Heuristic classifies network descriptions by keyword. Keywords are
// matched as lowercase substrings.
type Heuristic struct {
	Residential    []string
	NonResidential []string
}

// DefaultHeuristic returns the built-in keyword lists.
func DefaultHeuristic() Heuristic {
	return Heuristic{
		Residential: []string{
			"isp", "broadband", "cable", "telecom", "fios", "dsl", "residential",
			"internet services", "comcast", "verizon", "at&t", "cox", "charter", "spectrum",
		},
		NonResidential: []string{
			"hosting", "cloud", "server", "data center", "datacenter", "vps", "vpn", "proxy",
			"colocation", "cdn", "aws", "google", "azure", "digitalocean", "ovh", "linode",
		},
	}
}

// Classify joins fields and checks them against both keyword lists. Any
// non-residential keyword wins over residential ones.
func (h Heuristic) Classify(fields ...string) Verdict {
	text := strings.ToLower(strings.Join(fields, " "))

	res := containsAny(text, h.Residential)
	nonRes := containsAny(text, h.NonResidential)

	switch {
	case nonRes:
		return LikelyNonResidential
	case res:
		return LikelyResidential
	default:
		return Undetermined
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
