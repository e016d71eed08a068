package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
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
	esttrepo "github.com/wagedesk/wagedesk/internal/establishment/repository"
	esttservice "github.com/wagedesk/wagedesk/internal/establishment/service"
	"github.com/wagedesk/wagedesk/internal/importer"
	ledgerdomain "github.com/wagedesk/wagedesk/internal/ledger/domain"
	ledgerrepo "github.com/wagedesk/wagedesk/internal/ledger/repository"
	ledgerservice "github.com/wagedesk/wagedesk/internal/ledger/service"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

const testOrgHeader = "77"

func newTestEngine(t *testing.T) (*gin.Engine, certdomain.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&certdomain.Certificate{}, &ledgerdomain.Entry{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	holder := config.NewStaticRecoveryConfigHolder(config.DefaultRecoveryConfig())
	log := zaptest.NewLogger(t)
	cr := certrepo.Provide()

	certs := certservice.New(certservice.Params{
		DB: db, Repo: cr, Log: log, Clock: fake, Node: node, Holder: holder,
	})
	ledger := ledgerservice.New(ledgerservice.Params{
		DB: db, Repo: ledgerrepo.Provide(), Certs: certs, CertRepo: cr,
		Log: log, Clock: fake, Node: node, Holder: holder,
	})
	estts := esttservice.New(esttservice.Params{
		DB: db, Repo: esttrepo.Provide(), CertRepo: cr,
		Log: log, Clock: fake, Node: node,
	})

	s := &Server{
		cfg:            config.Config{AppVersion: "test"},
		log:            log,
		certs:          certs,
		ledger:         ledger,
		establishments: estts,
	}
	return s.buildEngine(), certs
}

func seedCertificate(t *testing.T, certs certdomain.Service) {
	t.Helper()
	ctx := orgcontext.WithOrgID(t.Context(), snowflake.ID(77))
	_, err := certs.BulkUpsert(ctx, []importer.Row{
		{Number: 2, Values: map[string]string{
			"establishment_code": "MH001",
			"certificate_number": "RRC-101",
			"demand_7a_ee1":      "5000",
		}},
	})
	require.NoError(t, err)
}

func doJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Org-Id", testOrgHeader)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestCreateRecoveryRoundTrip(t *testing.T) {
	engine, certs := newTestEngine(t)
	seedCertificate(t, certs)

	payload := map[string]any{
		"establishment_code": "MH001",
		"certificate_number": "RRC-101",
		"reference_no":       "T-1",
		"instrument_type":    "bank_draft",
		"instrument_date":    "2024-03-10T00:00:00Z",
		"amount":             2000,
	}

	w := doJSON(engine, http.MethodPost, "/v1/recoveries", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var entry ledgerdomain.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, 2000.0, entry.AllocatedTotal)

	// Same instrument again conflicts.
	w = doJSON(engine, http.MethodPost, "/v1/recoveries", payload)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(engine, http.MethodGet,
		"/v1/recoveries?establishment_code=MH001&certificate_number=RRC-101", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"T-1"`)

	w = doJSON(engine, http.MethodDelete, fmt.Sprintf("/v1/recoveries/%d", entry.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecoveryNotFoundAndValidation(t *testing.T) {
	engine, certs := newTestEngine(t)
	seedCertificate(t, certs)

	w := doJSON(engine, http.MethodPost, "/v1/recoveries", map[string]any{
		"establishment_code": "MH001",
		"certificate_number": "RRC-404",
		"reference_no":       "T-1",
		"instrument_type":    "bank_draft",
		"instrument_date":    "2024-03-10T00:00:00Z",
		"amount":             100,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(engine, http.MethodPost, "/v1/recoveries", map[string]any{
		"establishment_code": "MH001",
		"certificate_number": "RRC-101",
		"reference_no":       "T-2",
		"instrument_type":    "cash",
		"instrument_date":    "2024-03-10T00:00:00Z",
		"amount":             100,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_instrument_type")
}

func TestPreviewEndpoint(t *testing.T) {
	engine, certs := newTestEngine(t)
	seedCertificate(t, certs)

	w := doJSON(engine, http.MethodPost, "/v1/recoveries/preview", map[string]any{
		"establishment_code": "MH001",
		"certificate_number": "RRC-101",
		"amount":             1200,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1200`)
}

func TestCertificateRoutes(t *testing.T) {
	engine, certs := newTestEngine(t)
	seedCertificate(t, certs)

	w := doJSON(engine, http.MethodGet, "/v1/certificates", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "RRC-101")

	w = doJSON(engine, http.MethodGet, "/v1/certificates/RRC-101?establishment_code=MH001", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(engine, http.MethodGet, "/v1/certificates/RRC-404?establishment_code=MH001", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(engine, http.MethodPatch, "/v1/certificates/shared/MH001", map[string]any{
		"office": "RO Nagpur",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(engine, http.MethodGet, "/v1/certificates/RRC-101?establishment_code=MH001", nil)
	assert.Contains(t, w.Body.String(), "RO Nagpur")
}

func TestMissingOrgRejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/certificates", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_organization")
}
