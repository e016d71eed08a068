package allocation

import "github.com/wagedesk/wagedesk/internal/numeric"

// Allocate distributes a payment across the outstanding sub-account balances
// of a certificate, honoring the statutory priority order: section 7A first,
// then 7Q, then 14B, and within each section the fixed sub-account order.
// Each bucket receives min(remaining, outstanding); sections the eligibility
// directive excludes are skipped entirely, whatever their balances. Any
// amount left after every eligible bucket is full stays unallocated — the
// caller treats it as overpayment or cost recovery.
//
// Pure: no I/O, deterministic for identical inputs.
func Allocate(amount float64, outstanding Amounts, eligibility string) Breakdown {
	remaining := numeric.Float(amount)
	if remaining < 0 {
		remaining = 0
	}
	elig := ParseEligibility(eligibility)

	var b Breakdown
	if elig.S7A {
		fill(&b.S7A.EE1, outstanding.S7A.EE1, &remaining)
		fill(&b.S7A.ER1, outstanding.S7A.ER1, &remaining)
		fill(&b.S7A.Ac10, outstanding.S7A.Ac10, &remaining)
		fill(&b.S7A.Ac21, outstanding.S7A.Ac21, &remaining)
		fill(&b.S7A.Ac2, outstanding.S7A.Ac2, &remaining)
		fill(&b.S7A.Ac22, outstanding.S7A.Ac22, &remaining)
	}
	if elig.S7Q {
		fillSection5(&b.S7Q, outstanding.S7Q, &remaining)
	}
	if elig.S14B {
		fillSection5(&b.S14B, outstanding.S14B, &remaining)
	}

	b.Total7A = b.S7A.Sum()
	b.Total7Q = b.S7Q.Sum()
	b.Total14B = b.S14B.Sum()
	b.Total = b.Total7A + b.Total7Q + b.Total14B
	return b
}

func fillSection5(dst *Section5, outstanding Section5, remaining *float64) {
	fill(&dst.Ac1, outstanding.Ac1, remaining)
	fill(&dst.Ac10, outstanding.Ac10, remaining)
	fill(&dst.Ac21, outstanding.Ac21, remaining)
	fill(&dst.Ac2, outstanding.Ac2, remaining)
	fill(&dst.Ac22, outstanding.Ac22, remaining)
}

// fill moves min(*remaining, capacity) into *dst. Negative outstanding means
// the bucket is already overpaid and has no capacity.
func fill(dst *float64, capacity float64, remaining *float64) {
	if *remaining <= 0 || capacity <= 0 {
		return
	}
	take := capacity
	if *remaining < take {
		take = *remaining
	}
	*dst = take
	*remaining -= take
}
