package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/wagedesk/wagedesk/internal/allocation"
	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	certrepo "github.com/wagedesk/wagedesk/internal/certificate/repository"
	certservice "github.com/wagedesk/wagedesk/internal/certificate/service"
	"github.com/wagedesk/wagedesk/internal/clock"
	"github.com/wagedesk/wagedesk/internal/config"
	"github.com/wagedesk/wagedesk/internal/importer"
	"github.com/wagedesk/wagedesk/internal/ledger/domain"
	"github.com/wagedesk/wagedesk/internal/ledger/repository"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

var testOrg = snowflake.ID(77)

type fixture struct {
	ledger domain.Service
	certs  certdomain.Service
	db     *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&certdomain.Certificate{}, &domain.Entry{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	holder := config.NewStaticRecoveryConfigHolder(config.DefaultRecoveryConfig())
	log := zaptest.NewLogger(t)
	cr := certrepo.Provide()

	certs := certservice.New(certservice.Params{
		DB:     db,
		Repo:   cr,
		Log:    log,
		Clock:  fake,
		Node:   node,
		Holder: holder,
	})
	ledger := New(Params{
		DB:       db,
		Repo:     repository.Provide(),
		Certs:    certs,
		CertRepo: cr,
		Log:      log,
		Clock:    fake,
		Node:     node,
		Holder:   holder,
	})
	return &fixture{ledger: ledger, certs: certs, db: db}
}

func orgCtx() context.Context {
	return orgcontext.WithOrgID(context.Background(), testOrg)
}

func (f *fixture) seedCertificate(t *testing.T, number string, vals map[string]string) *certdomain.Certificate {
	t.Helper()
	row := map[string]string{
		"establishment_code": "MH001",
		"certificate_number": number,
	}
	for k, v := range vals {
		row[k] = v
	}
	_, err := f.certs.BulkUpsert(orgCtx(), []importer.Row{{Number: 2, Values: row}})
	require.NoError(t, err)

	cert, err := f.certs.GetByNumber(orgCtx(), "MH001", number)
	require.NoError(t, err)
	return cert
}

func entryInput(number string, amount float64) domain.EntryInput {
	return domain.EntryInput{
		EstablishmentCode: "MH001",
		CertificateNumber: number,
		ReferenceNo:       "T-" + number,
		InstrumentType:    domain.InstrumentBankDraft,
		InstrumentDate:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Amount:            amount,
	}
}

func TestCreateAllocatesAndResums(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{
		"demand_7a_ee1": "3000",
		"demand_7q_ac1": "4000",
	})

	in := entryInput("RRC/101", 5000)
	in.Remark = "first instalment"
	entry, err := f.ledger.Create(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, 3000.0, entry.Allocation.S7AEE1)
	assert.Equal(t, 2000.0, entry.Allocation.S7QAc1)
	assert.Equal(t, 5000.0, entry.AllocatedTotal)
	assert.Equal(t, 0.0, entry.Unallocated)

	cert, err := f.certs.GetByNumber(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Equal(t, 5000.0, cert.RecoveredTotal)
	assert.Equal(t, 2000.0, cert.OutstandingTotal)
	assert.Equal(t, 0.0, cert.Outstanding.S7AEE1)
	assert.Equal(t, 2000.0, cert.Outstanding.S7QAc1)
	assert.Equal(t, 2000.0, cert.GroupOutstandingTotal)
	assert.Contains(t, cert.Remarks, "first instalment")
}

func TestCreateRespectsEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{
		"demand_7a_ee1":  "3000",
		"demand_14b_ac1": "1000",
		"eligibility":    "u/s 14B",
	})

	entry, err := f.ledger.Create(ctx, entryInput("RRC/101", 2000))
	require.NoError(t, err)

	assert.Equal(t, 0.0, entry.Allocated7A)
	assert.Equal(t, 1000.0, entry.Allocated14B)
	assert.Equal(t, 1000.0, entry.Unallocated)
}

func TestCreateRejectsDuplicateReference(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{"demand_7a_ee1": "9000"})

	_, err := f.ledger.Create(ctx, entryInput("RRC/101", 1000))
	require.NoError(t, err)

	_, err = f.ledger.Create(ctx, entryInput("RRC/101", 500))
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)

	// Same reference on another day is a different instrument.
	next := entryInput("RRC/101", 500)
	next.InstrumentDate = next.InstrumentDate.AddDate(0, 0, 1)
	_, err = f.ledger.Create(ctx, next)
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{"demand_7a_ee1": "1000"})

	tests := []struct {
		name    string
		mutate  func(*domain.EntryInput)
		wantErr error
	}{
		{"zero amount", func(in *domain.EntryInput) { in.Amount = 0 }, domain.ErrInvalidAmount},
		{"negative amount", func(in *domain.EntryInput) { in.Amount = -5 }, domain.ErrInvalidAmount},
		{"negative cost", func(in *domain.EntryInput) { in.CostAmount = -1 }, domain.ErrInvalidAmount},
		{"cost above amount", func(in *domain.EntryInput) { in.CostAmount = 150 }, domain.ErrInvalidAmount},
		{"blank reference", func(in *domain.EntryInput) { in.ReferenceNo = " " }, domain.ErrInvalidReference},
		{"bad instrument", func(in *domain.EntryInput) { in.InstrumentType = "cash" }, domain.ErrInvalidInstrumentType},
		{"zero date", func(in *domain.EntryInput) { in.InstrumentDate = time.Time{} }, domain.ErrInvalidInstrumentDate},
		{"unknown certificate", func(in *domain.EntryInput) { in.CertificateNumber = "RRC/404" }, domain.ErrCertificateNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := entryInput("RRC/101", 100)
			tc.mutate(&in)
			_, err := f.ledger.Create(ctx, in)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestManualBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{"demand_7a_ee1": "5000"})

	in := entryInput("RRC/101", 1000)
	in.Breakdown = &allocation.Amounts{
		S7A: allocation.Section7A{EE1: 400},
		S7Q: allocation.Section5{Ac1: 300},
	}
	_, err := f.ledger.Create(ctx, in)
	assert.ErrorIs(t, err, domain.ErrAllocationMismatch)

	in.Breakdown.S14B = allocation.Section5{Ac1: 300}
	entry, err := f.ledger.Create(ctx, in)
	require.NoError(t, err)
	// The manual split is stored as given, engine untouched.
	assert.Equal(t, 400.0, entry.Allocation.S7AEE1)
	assert.Equal(t, 300.0, entry.Allocation.S7QAc1)
	assert.Equal(t, 300.0, entry.Allocation.S14BAc1)
}

func TestManualBreakdownAccountsForCost(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{
		"demand_7a_ee1": "5000",
		"cost_levied":   "500",
	})

	// 900 allocated + 100 cost covers the 1000 payment exactly.
	in := entryInput("RRC/101", 1000)
	in.CostAmount = 100
	in.Breakdown = &allocation.Amounts{S7A: allocation.Section7A{EE1: 900}}
	entry, err := f.ledger.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 900.0, entry.AllocatedTotal)
	assert.Equal(t, 0.0, entry.Unallocated)

	cert, err := f.certs.GetByNumber(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Equal(t, 900.0, cert.RecoveredTotal)
	assert.Equal(t, 100.0, cert.CostReceived)

	// A split consuming the cost share would book 1100 against a 1000 payment.
	over := entryInput("RRC/101", 1000)
	over.ReferenceNo = "T-2"
	over.CostAmount = 100
	over.Breakdown = &allocation.Amounts{S7A: allocation.Section7A{EE1: 1000}}
	_, err = f.ledger.Create(ctx, over)
	assert.ErrorIs(t, err, domain.ErrAllocationMismatch)
}

func TestManualBreakdownRejectsNegativeBuckets(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{"demand_7a_ee1": "5000"})

	in := entryInput("RRC/101", 1000)
	in.Breakdown = &allocation.Amounts{
		S7A: allocation.Section7A{EE1: 1500},
		S7Q: allocation.Section5{Ac1: -500},
	}
	_, err := f.ledger.Create(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNegativeAllocation)

	entries, err := f.ledger.ListByCertificate(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateAppliesCostIncrementally(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{
		"demand_7a_ee1": "1000",
		"cost_levied":   "500",
	})

	in := entryInput("RRC/101", 200)
	in.CostAmount = 120
	entry, err := f.ledger.Create(ctx, in)
	require.NoError(t, err)

	// Only the net amount reaches the funds; the cost share is booked as cost.
	assert.Equal(t, 80.0, entry.AllocatedTotal)

	cert, err := f.certs.GetByNumber(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Equal(t, 120.0, cert.CostReceived)
	assert.Equal(t, 380.0, cert.CostOutstanding)
	assert.Equal(t, 920.0, cert.OutstandingTotal)
	assert.Equal(t, 1300.0, cert.TotalWithCost)
}

func TestUpdateRebasesAgainstClampedCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{"demand_7a_ee1": "1000"})

	first, err := f.ledger.Create(ctx, entryInput("RRC/101", 600))
	require.NoError(t, err)

	second := entryInput("RRC/101", 600)
	second.ReferenceNo = "T-2"
	entry2, err := f.ledger.Create(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 400.0, entry2.AllocatedTotal)
	assert.Equal(t, 200.0, entry2.Unallocated)

	// Shrinking the first entry frees capacity for nothing retroactively;
	// the edited entry itself rebases against demand minus the others.
	in := entryInput("RRC/101", 300)
	updated, err := f.ledger.Update(ctx, first.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 300.0, updated.AllocatedTotal)

	cert, err := f.certs.GetByNumber(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Equal(t, 700.0, cert.RecoveredTotal)
	assert.Equal(t, 300.0, cert.OutstandingTotal)
}

func TestUpdateResumsCost(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{
		"demand_7a_ee1": "1000",
		"cost_levied":   "300",
	})

	in := entryInput("RRC/101", 200)
	in.CostAmount = 100
	entry, err := f.ledger.Create(ctx, in)
	require.NoError(t, err)

	in.CostAmount = 40
	_, err = f.ledger.Update(ctx, entry.ID, in)
	require.NoError(t, err)

	cert, err := f.certs.GetByNumber(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Equal(t, 40.0, cert.CostReceived)
	assert.Equal(t, 260.0, cert.CostOutstanding)
}

func TestDeleteRestoresOutstanding(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{
		"demand_7a_ee1": "1000",
		"cost_levied":   "300",
	})

	in := entryInput("RRC/101", 400)
	in.CostAmount = 50
	entry, err := f.ledger.Create(ctx, in)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Delete(ctx, entry.ID))

	cert, err := f.certs.GetByNumber(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cert.RecoveredTotal)
	assert.Equal(t, 1000.0, cert.OutstandingTotal)
	assert.Equal(t, 0.0, cert.CostReceived)
	assert.Equal(t, 1000.0, cert.GroupOutstandingTotal)

	assert.ErrorIs(t, f.ledger.Delete(ctx, entry.ID), domain.ErrEntryNotFound)
}

func TestPreviewDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	f.seedCertificate(t, "RRC/101", map[string]string{"demand_7a_ee1": "1000"})

	b, err := f.ledger.Preview(ctx, "MH001", "RRC/101", 600)
	require.NoError(t, err)
	assert.Equal(t, 600.0, b.Total)

	cert, err := f.certs.GetByNumber(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cert.RecoveredTotal)

	entries, err := f.ledger.ListByCertificate(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResyncHealsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := orgCtx()
	cert := f.seedCertificate(t, "RRC/101", map[string]string{"demand_7a_ee1": "1000"})

	_, err := f.ledger.Create(ctx, entryInput("RRC/101", 400))
	require.NoError(t, err)

	// Corrupt the stored position directly.
	require.NoError(t, f.db.Model(&certdomain.Certificate{}).
		Where("id = ?", cert.ID).
		Updates(map[string]any{"recovered_total": 0, "outstanding_total": 1000}).Error)

	require.NoError(t, f.ledger.Resync(ctx, "MH001", "RRC/101"))

	healed, err := f.certs.GetByNumber(ctx, "MH001", "RRC/101")
	require.NoError(t, err)
	assert.Equal(t, 400.0, healed.RecoveredTotal)
	assert.Equal(t, 600.0, healed.OutstandingTotal)
}
