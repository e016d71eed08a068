package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	"github.com/wagedesk/wagedesk/internal/allocation"
	"github.com/wagedesk/wagedesk/internal/importer"
)

var (
	ErrNotFound                 = errors.New("certificate_not_found")
	ErrNotTrashed               = errors.New("certificate_not_trashed")
	ErrInvalidCertificateNumber = errors.New("invalid_certificate_number")
	ErrInvalidEstablishmentCode = errors.New("invalid_establishment_code")
	ErrEmptyImport              = errors.New("empty_import")
	ErrImportTooLarge           = errors.New("import_too_large")
)

// RowError is one failed import row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport summarizes a bulk upsert.
type ImportReport struct {
	BatchID   string     `json:"batch_id"`
	Processed int        `json:"processed"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors,omitempty"`
}

// Service is the certificate registry: upload, listing, soft-delete
// lifecycle, establishment-shared field maintenance, and the mutation
// primitives the ledger reconciler drives (SetRecovered, cost application,
// group rollups).
type Service interface {
	BulkUpsert(ctx context.Context, rows []importer.Row) (ImportReport, error)
	List(ctx context.Context) ([]Certificate, error)
	ListTrash(ctx context.Context) ([]Certificate, error)
	GetByNumber(ctx context.Context, establishmentCode, certificateNumber string) (*Certificate, error)

	UpdateShared(ctx context.Context, establishmentCode string, patch SharedFieldsPatch) error
	AppendRemark(ctx context.Context, establishmentCode, remark, source string) error

	SoftDelete(ctx context.Context, id snowflake.ID) error
	Restore(ctx context.Context, id snowflake.ID) error
	Purge(ctx context.Context, id snowflake.ID) error

	// Reconciler support. SetRecovered stores the resummed recovered amounts
	// and re-derives outstanding fields; the cost setters fan out across the
	// establishment group; RecomputeGroupRollups refreshes group totals from
	// the live members.
	SetRecovered(ctx context.Context, id snowflake.ID, recovered allocation.Amounts) error
	ApplyCostReceived(ctx context.Context, establishmentCode string, delta float64) error
	SetCostReceived(ctx context.Context, establishmentCode string, total float64) error
	RecomputeGroupRollups(ctx context.Context, establishmentCode string) error
}
