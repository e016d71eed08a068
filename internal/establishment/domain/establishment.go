package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/wagedesk/wagedesk/internal/importer"
)

var (
	ErrNotFound    = errors.New("establishment_not_found")
	ErrInvalidCode = errors.New("invalid_establishment_code")
	ErrEmptyImport = errors.New("empty_import")
)

// Establishment is the master record for one employer. Address and contact
// details live here and are pushed one-way onto the certificates carrying the
// same code.
type Establishment struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_establishments_org_code,priority:1" json:"organization_id"`

	Code string `gorm:"type:text;not null;uniqueIndex:ux_establishments_org_code,priority:2" json:"code"`
	Name string `gorm:"type:text" json:"name"`

	Address1 string `gorm:"type:text" json:"address1,omitempty"`
	Address2 string `gorm:"type:text" json:"address2,omitempty"`
	City     string `gorm:"type:text" json:"city,omitempty"`
	State    string `gorm:"type:text" json:"state,omitempty"`
	Pincode  string `gorm:"type:text" json:"pincode,omitempty"`
	Phone    string `gorm:"type:text" json:"phone,omitempty"`
	Email    string `gorm:"type:text" json:"email,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Establishment) TableName() string { return "establishments" }

// RowError is one failed import row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport summarizes a bulk upsert.
type ImportReport struct {
	Processed int        `json:"processed"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors,omitempty"`
}

// Service maintains the establishment master and its one-way push onto
// certificates.
type Service interface {
	List(ctx context.Context) ([]Establishment, error)
	GetByCode(ctx context.Context, code string) (*Establishment, error)
	Upsert(ctx context.Context, e Establishment) (*Establishment, error)
	BulkUpsert(ctx context.Context, rows []importer.Row) (ImportReport, error)

	// SyncToCertificates copies the master's address and contact fields onto
	// every certificate sharing the code.
	SyncToCertificates(ctx context.Context, code string) error
}

// Repository is the establishment persistence surface.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, e *Establishment) error
	Save(ctx context.Context, db *gorm.DB, e *Establishment) error
	FindByCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (*Establishment, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Establishment, error)
}
