package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wagedesk/wagedesk/internal/allocation"
)

func TestSectionTotalsExplicitWins(t *testing.T) {
	f := Figures{
		Amounts: allocation.Amounts{
			S7A: allocation.Section7A{EE1: 400, ER1: 600},
			S7Q: allocation.Section5{Ac1: 300},
		},
		S7ATotal: 1200, // explicit figure differs from the 1000 sum
	}

	got := DemandTotals(f)

	assert.Equal(t, 1200.0, got.S7A)
	assert.Equal(t, 300.0, got.S7Q)
	assert.Equal(t, 0.0, got.S14B)
	assert.Equal(t, 1500.0, got.Grand)
}

func TestSectionTotalsZeroExplicitFallsBackToSum(t *testing.T) {
	f := Figures{
		Amounts: allocation.Amounts{
			S14B: allocation.Section5{Ac1: 250, Ac10: 50},
		},
	}

	got := RecoveryTotals(f)

	assert.Equal(t, 300.0, got.S14B)
	assert.Equal(t, 300.0, got.Grand)
}

func TestOutstandingKeepsNegatives(t *testing.T) {
	demand := allocation.Amounts{S7A: allocation.Section7A{EE1: 1000}}
	recovered := allocation.Amounts{S7A: allocation.Section7A{EE1: 1400}}

	got := Outstanding(demand, recovered)

	assert.Equal(t, -400.0, got.Amounts.S7A.EE1)
	assert.Equal(t, -400.0, got.Totals.S7A)
	assert.Equal(t, -400.0, got.Grand)
}

func TestRemainingCapacityClampsAtZero(t *testing.T) {
	demand := allocation.Amounts{
		S7A: allocation.Section7A{EE1: 1000, ER1: 500},
		S7Q: allocation.Section5{Ac1: 200},
	}
	recovered := allocation.Amounts{
		S7A: allocation.Section7A{EE1: 1400, ER1: 100},
	}

	got := RemainingCapacity(demand, recovered)

	assert.Equal(t, 0.0, got.S7A.EE1)
	assert.Equal(t, 400.0, got.S7A.ER1)
	assert.Equal(t, 200.0, got.S7Q.Ac1)
}

func TestCostRecovery(t *testing.T) {
	outstanding, withCost := CostRecovery(5000, 2000, 10000)

	assert.Equal(t, 3000.0, outstanding)
	assert.Equal(t, 13000.0, withCost)
}

func TestGroupTotals(t *testing.T) {
	rows := []GroupRow{
		{EstablishmentCode: "MH001", DemandTotal: 1000, RecoveredTotal: 400, OutstandingTotal: 600, CostOutstanding: 150},
		{EstablishmentCode: "MH001", DemandTotal: 2000, RecoveredTotal: 500, OutstandingTotal: 1500, CostOutstanding: 150},
		{EstablishmentCode: "DL002", DemandTotal: 700, RecoveredTotal: 700, OutstandingTotal: 0, CostOutstanding: 0},
	}

	got := GroupTotals(rows)

	mh := got["MH001"]
	assert.Equal(t, 3000.0, mh.Demand)
	assert.Equal(t, 900.0, mh.Recovered)
	assert.Equal(t, 2100.0, mh.Outstanding)
	// Cost outstanding is establishment-level, counted once.
	assert.Equal(t, 2250.0, mh.WithCost)

	dl := got["DL002"]
	assert.Equal(t, 0.0, dl.WithCost)
}
