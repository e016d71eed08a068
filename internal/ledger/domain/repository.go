package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the ledger persistence surface. Methods take the gorm handle
// explicitly so callers can pass a transaction when they hold one.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, e *Entry) error
	Save(ctx context.Context, db *gorm.DB, e *Entry) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Entry, error)
	ListByCertificate(ctx context.Context, db *gorm.DB, orgID, certificateID snowflake.ID) ([]Entry, error)
	ListByEstablishment(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string) ([]Entry, error)

	// FindDuplicate looks for another entry carrying the same reference number
	// with an instrument date on the same calendar day. excludeID skips the
	// entry being edited.
	FindDuplicate(ctx context.Context, db *gorm.DB, orgID snowflake.ID, referenceNo string, instrumentDate time.Time, excludeID snowflake.ID) (*Entry, error)
}
