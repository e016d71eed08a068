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

	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	certrepo "github.com/wagedesk/wagedesk/internal/certificate/repository"
	certservice "github.com/wagedesk/wagedesk/internal/certificate/service"
	"github.com/wagedesk/wagedesk/internal/clock"
	"github.com/wagedesk/wagedesk/internal/config"
	"github.com/wagedesk/wagedesk/internal/establishment/domain"
	"github.com/wagedesk/wagedesk/internal/establishment/repository"
	"github.com/wagedesk/wagedesk/internal/importer"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

var testOrg = snowflake.ID(77)

func newTestService(t *testing.T) (domain.Service, certdomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Establishment{}, &certdomain.Certificate{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)
	cr := certrepo.Provide()

	certs := certservice.New(certservice.Params{
		DB:     db,
		Repo:   cr,
		Log:    log,
		Clock:  fake,
		Node:   node,
		Holder: config.NewStaticRecoveryConfigHolder(config.DefaultRecoveryConfig()),
	})
	svc := New(Params{
		DB:       db,
		Repo:     repository.Provide(),
		CertRepo: cr,
		Log:      log,
		Clock:    fake,
		Node:     node,
	})
	return svc, certs
}

func orgCtx() context.Context {
	return orgcontext.WithOrgID(context.Background(), testOrg)
}

func TestUpsertAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgCtx()

	created, err := svc.Upsert(ctx, domain.Establishment{
		Code: "MH001",
		Name: "Sharma Textiles",
		City: "Nagpur",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	updated, err := svc.Upsert(ctx, domain.Establishment{
		Code: "MH001",
		Name: "Sharma Textiles Pvt Ltd",
		City: "Nagpur",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := svc.GetByCode(ctx, "MH001")
	require.NoError(t, err)
	assert.Equal(t, "Sharma Textiles Pvt Ltd", got.Name)

	_, err = svc.GetByCode(ctx, "XX999")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Upsert(ctx, domain.Establishment{Code: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestSyncToCertificates(t *testing.T) {
	svc, certs := newTestService(t)
	ctx := orgCtx()

	_, err := certs.BulkUpsert(ctx, []importer.Row{
		{Number: 2, Values: map[string]string{
			"establishment_code": "MH001",
			"certificate_number": "RRC/101",
			"demand_7a_ee1":      "1000",
		}},
		{Number: 3, Values: map[string]string{
			"establishment_code": "MH001",
			"certificate_number": "RRC/102",
			"demand_7a_ee1":      "2000",
		}},
	})
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, domain.Establishment{
		Code:    "MH001",
		Name:    "Sharma Textiles",
		City:    "Nagpur",
		State:   "Maharashtra",
		Pincode: "440001",
	})
	require.NoError(t, err)

	for _, number := range []string{"RRC/101", "RRC/102"} {
		cert, err := certs.GetByNumber(ctx, "MH001", number)
		require.NoError(t, err)
		assert.Equal(t, "Sharma Textiles", cert.EstablishmentName)
		assert.Equal(t, "Nagpur", cert.City)
		assert.Equal(t, "440001", cert.Pincode)
	}

	assert.ErrorIs(t, svc.SyncToCertificates(ctx, "XX999"), domain.ErrNotFound)
}

func TestBulkUpsertFromSheet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgCtx()

	report, err := svc.BulkUpsert(ctx, []importer.Row{
		{Number: 2, Values: map[string]string{
			"establishment_code": "MH001",
			"establishment_name": "Sharma Textiles",
			"city":               "Nagpur",
		}},
		{Number: 3, Values: map[string]string{
			"establishment_name": "No Code Mills",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "MH001", list[0].Code)

	_, err = svc.BulkUpsert(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyImport)
}
