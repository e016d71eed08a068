package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"

	"github.com/wagedesk/wagedesk/internal/allocation"
	"github.com/wagedesk/wagedesk/internal/importer"
)

var (
	ErrEntryNotFound         = errors.New("entry_not_found")
	ErrCertificateNotFound   = errors.New("certificate_not_found")
	ErrDuplicateEntry        = errors.New("duplicate_entry")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidInstrumentType = errors.New("invalid_instrument_type")
	ErrInvalidReference      = errors.New("invalid_reference")
	ErrInvalidInstrumentDate = errors.New("invalid_instrument_date")
	ErrAllocationMismatch    = errors.New("allocation_mismatch")
	ErrNegativeAllocation    = errors.New("negative_allocation")
	ErrEmptyImport           = errors.New("empty_import")
	ErrImportTooLarge        = errors.New("import_too_large")
)

// RowError is one failed import row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// BatchValidationError rejects a bulk import wholesale: no row is written
// until every row passes pre-validation.
type BatchValidationError struct {
	Rows []RowError `json:"rows"`
}

func (e *BatchValidationError) Error() string {
	return fmt.Sprintf("batch validation failed for %d rows", len(e.Rows))
}

// ImportReport summarizes a bulk recovery import.
type ImportReport struct {
	BatchID   string     `json:"batch_id"`
	Processed int        `json:"processed"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors,omitempty"`
}

// Service is the recovery ledger and its reconciler. Every mutation resums
// the certificate's recovered position from the full ledger and re-derives
// its outstanding and cost figures.
type Service interface {
	Create(ctx context.Context, in EntryInput) (*Entry, error)
	Update(ctx context.Context, id snowflake.ID, in EntryInput) (*Entry, error)
	Delete(ctx context.Context, id snowflake.ID) error

	Get(ctx context.Context, id snowflake.ID) (*Entry, error)
	ListByCertificate(ctx context.Context, establishmentCode, certificateNumber string) ([]Entry, error)

	BulkImport(ctx context.Context, rows []importer.Row) (ImportReport, error)

	// Preview runs the allocation engine against the certificate's current
	// outstanding position without writing anything.
	Preview(ctx context.Context, establishmentCode, certificateNumber string, amount float64) (allocation.Breakdown, error)

	// Resync rebuilds the certificate's recovered, outstanding and cost
	// figures from its ledger. Safe to run repeatedly.
	Resync(ctx context.Context, establishmentCode, certificateNumber string) error
}
