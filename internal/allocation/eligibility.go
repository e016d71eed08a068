package allocation

import "strings"

// Eligibility says which statutory sections a certificate's legal order
// permits recovery against.
type Eligibility struct {
	S7A  bool `json:"s7a"`
	S14B bool `json:"s14b"`
	S7Q  bool `json:"s7q"`
}

// All reports whether every section is eligible.
func (e Eligibility) All() bool { return e.S7A && e.S14B && e.S7Q }

// ParseEligibility interprets the free-text section directive on a
// certificate ("u/s 7A", "u/s 14B & 7Q", ...). Empty text means all three
// sections are eligible. Text that names none of the three labels also falls
// back to all-eligible; that permissive fallback is inherited behavior and
// must not be tightened without sign-off from the recovery office.
func ParseEligibility(text string) Eligibility {
	upper := strings.ToUpper(strings.TrimSpace(text))
	if upper == "" {
		return Eligibility{S7A: true, S14B: true, S7Q: true}
	}

	e := Eligibility{
		S7A:  strings.Contains(upper, "7A"),
		S14B: strings.Contains(upper, "14B"),
		S7Q:  strings.Contains(upper, "7Q"),
	}
	if !e.S7A && !e.S14B && !e.S7Q {
		return Eligibility{S7A: true, S14B: true, S7Q: true}
	}
	return e
}
