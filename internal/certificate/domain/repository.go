package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/wagedesk/wagedesk/internal/balance"
)

// Repository is the certificate persistence surface. Methods take the gorm
// handle explicitly so callers can pass a transaction when they hold one.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Certificate) error
	Save(ctx context.Context, db *gorm.DB, c *Certificate) error
	HardDelete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Certificate, error)
	FindByNumber(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode, certificateNumber string, includeDeleted bool) (*Certificate, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, deleted bool) ([]Certificate, error)
	ListByEstablishment(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, includeDeleted bool) ([]Certificate, error)

	// ExistingRefs reports which of the given business keys exist among
	// active certificates — bulk-import pre-validation.
	ExistingRefs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, refs []Ref) (map[Ref]bool, error)

	// UpdateShared fans column updates out to every certificate (live and
	// trashed) sharing the establishment code.
	UpdateShared(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, fields map[string]any) error

	// AddCostReceived bumps cost_received across the group and re-derives
	// cost_outstanding and total_with_cost in the same statement.
	AddCostReceived(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, delta float64) error
	SetCostReceived(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, total float64) error

	UpdateGroupRollups(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, rollup balance.GroupRollup) error
}
