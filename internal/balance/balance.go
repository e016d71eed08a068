// Package balance derives outstanding figures from raw demand and recovery
// amounts. Everything here is pure arithmetic over already-coerced floats;
// malformed input is the caller's problem (it routes through numeric.Float
// before reaching this package).
package balance

import "github.com/wagedesk/wagedesk/internal/allocation"

// Figures is a raw per-section record as uploaded: sixteen sub-account
// amounts plus optional explicit section-level totals. An explicit non-zero
// section total wins over the sum of its sub-accounts — certificates issued
// before sub-account itemization carry only the section figure.
type Figures struct {
	allocation.Amounts
	S7ATotal  float64 `json:"total_7a"`
	S7QTotal  float64 `json:"total_7q"`
	S14BTotal float64 `json:"total_14b"`
}

// Totals is the derived section and grand totals for one metric.
type Totals struct {
	S7A   float64 `json:"s7a"`
	S7Q   float64 `json:"s7q"`
	S14B  float64 `json:"s14b"`
	Grand float64 `json:"grand"`
}

// DemandTotals derives the demand section totals for a certificate row.
func DemandTotals(f Figures) Totals { return sectionTotals(f) }

// RecoveryTotals derives the recovered section totals for a certificate row.
// Identical arithmetic to DemandTotals, applied to recovery figures.
func RecoveryTotals(f Figures) Totals { return sectionTotals(f) }

func sectionTotals(f Figures) Totals {
	t := Totals{
		S7A:  f.S7ATotal,
		S7Q:  f.S7QTotal,
		S14B: f.S14BTotal,
	}
	if t.S7A == 0 {
		t.S7A = f.S7A.Sum()
	}
	if t.S7Q == 0 {
		t.S7Q = f.S7Q.Sum()
	}
	if t.S14B == 0 {
		t.S14B = f.S14B.Sum()
	}
	t.Grand = t.S7A + t.S7Q + t.S14B
	return t
}

// Outstandings is the derived outstanding position of a certificate.
type Outstandings struct {
	allocation.Amounts
	Totals
}

// Outstanding computes demand − recovered for every sub-account. No clamping:
// a bucket recovered beyond its demand goes negative and stays negative,
// representing overpayment. Section totals are sums of their sub-accounts,
// the grand total the sum of sections.
func Outstanding(demand, recovered allocation.Amounts) Outstandings {
	diff := allocation.Sub(demand, recovered)
	return Outstandings{
		Amounts: diff,
		Totals: Totals{
			S7A:   diff.S7A.Sum(),
			S7Q:   diff.S7Q.Sum(),
			S14B:  diff.S14B.Sum(),
			Grand: diff.Total(),
		},
	}
}

// RemainingCapacity computes max(0, demand − recovered) per sub-account.
// This clamped variant is used only when rebasing a ledger edit or delete;
// the import path uses Outstanding and keeps negatives. The two must stay
// separate — unifying them changes financial output (see DESIGN.md).
func RemainingCapacity(demand, recovered allocation.Amounts) allocation.Amounts {
	diff := allocation.Sub(demand, recovered)
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return allocation.Amounts{
		S7A: allocation.Section7A{
			EE1:  clamp(diff.S7A.EE1),
			ER1:  clamp(diff.S7A.ER1),
			Ac10: clamp(diff.S7A.Ac10),
			Ac21: clamp(diff.S7A.Ac21),
			Ac2:  clamp(diff.S7A.Ac2),
			Ac22: clamp(diff.S7A.Ac22),
		},
		S7Q:  clampSection5(diff.S7Q),
		S14B: clampSection5(diff.S14B),
	}
}

func clampSection5(s allocation.Section5) allocation.Section5 {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return allocation.Section5{
		Ac1:  clamp(s.Ac1),
		Ac10: clamp(s.Ac10),
		Ac21: clamp(s.Ac21),
		Ac2:  clamp(s.Ac2),
		Ac22: clamp(s.Ac22),
	}
}

// CostRecovery derives the recovery-cost position: cost still outstanding and
// the certificate's grand total including it.
func CostRecovery(levied, received, outstandingTotal float64) (costOutstanding, totalWithCost float64) {
	costOutstanding = levied - received
	totalWithCost = outstandingTotal + costOutstanding
	return costOutstanding, totalWithCost
}

// GroupRow is one certificate's contribution to its establishment group.
type GroupRow struct {
	EstablishmentCode string
	DemandTotal       float64
	RecoveredTotal    float64
	OutstandingTotal  float64
	CostOutstanding   float64
}

// GroupRollup is the establishment-level aggregate across sibling
// certificates.
type GroupRollup struct {
	Demand      float64 `json:"demand"`
	Recovered   float64 `json:"recovered"`
	Outstanding float64 `json:"outstanding"`
	WithCost    float64 `json:"with_cost"`
}

// GroupTotals sums certificate totals per establishment code. The cost
// outstanding is establishment-level and already synchronized across the
// group, so it is read once from the first member rather than summed.
func GroupTotals(rows []GroupRow) map[string]GroupRollup {
	costSeen := make(map[string]float64)
	rollups := make(map[string]GroupRollup)
	for _, row := range rows {
		r := rollups[row.EstablishmentCode]
		if _, ok := costSeen[row.EstablishmentCode]; !ok {
			costSeen[row.EstablishmentCode] = row.CostOutstanding
		}
		r.Demand += row.DemandTotal
		r.Recovered += row.RecoveredTotal
		r.Outstanding += row.OutstandingTotal
		rollups[row.EstablishmentCode] = r
	}
	for code, r := range rollups {
		r.WithCost = r.Outstanding + costSeen[code]
		rollups[code] = r
	}
	return rollups
}
