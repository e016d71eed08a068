package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/wagedesk/wagedesk/internal/allocation"
	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
)

// Payment instrument kinds accepted on a recovery entry.
const (
	InstrumentBankDraft = "bank_draft"
	InstrumentTransfer  = "transfer"
)

// ValidInstrumentType reports whether t is an accepted instrument kind.
func ValidInstrumentType(t string) bool {
	return t == InstrumentBankDraft || t == InstrumentTransfer
}

// Entry is one recovery payment against a certificate. The allocation columns
// store how the payment amount was split across the statutory sub-accounts at
// the time of entry.
type Entry struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index" json:"organization_id"`

	CertificateID     snowflake.ID `gorm:"not null;index" json:"certificate_id"`
	EstablishmentCode string       `gorm:"type:text;not null;index" json:"establishment_code"`
	CertificateNumber string       `gorm:"type:text;not null" json:"certificate_number"`

	ReferenceNo    string     `gorm:"type:text;not null;index" json:"reference_no"`
	InstrumentType string     `gorm:"type:text;not null" json:"instrument_type"`
	InstrumentDate time.Time  `gorm:"not null" json:"instrument_date"`
	PaymentDate    *time.Time `json:"payment_date,omitempty"`

	Amount     float64 `gorm:"not null" json:"amount"`
	CostAmount float64 `gorm:"not null;default:0" json:"cost_amount"`

	Allocation certdomain.MoneyColumns `gorm:"embedded;embeddedPrefix:recovered_" json:"allocation"`

	Allocated7A    float64 `gorm:"column:allocated_7a" json:"allocated_7a"`
	Allocated7Q    float64 `gorm:"column:allocated_7q" json:"allocated_7q"`
	Allocated14B   float64 `gorm:"column:allocated_14b" json:"allocated_14b"`
	AllocatedTotal float64 `gorm:"column:allocated_total" json:"allocated_total"`

	// Portion of the amount no eligible section could absorb.
	Unallocated float64 `gorm:"not null;default:0" json:"unallocated"`

	BatchID string `gorm:"type:text;index" json:"batch_id,omitempty"`
	Remark  string `gorm:"type:text" json:"remark,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "recovery_entries" }

// SetBreakdown stores an allocation result onto the entry's columns.
// allocatable is the payment amount net of the cost-recovery figure.
func (e *Entry) SetBreakdown(allocatable float64, b allocation.Breakdown) {
	e.Allocation = certdomain.ColumnsFrom(b.Amounts)
	e.Allocated7A = b.Total7A
	e.Allocated7Q = b.Total7Q
	e.Allocated14B = b.Total14B
	e.AllocatedTotal = b.Total
	e.Unallocated = allocatable - b.Total
}

// EntryInput carries the caller-supplied fields of a create or update.
// Breakdown, when set, is a manually supplied split that overrides the
// allocation engine; its total plus CostAmount must match Amount within the
// configured tolerance, and no sub-account may be negative.
type EntryInput struct {
	EstablishmentCode string     `json:"establishment_code"`
	CertificateNumber string     `json:"certificate_number"`
	ReferenceNo       string     `json:"reference_no"`
	InstrumentType    string     `json:"instrument_type"`
	InstrumentDate    time.Time  `json:"instrument_date"`
	PaymentDate       *time.Time `json:"payment_date,omitempty"`
	Amount            float64    `json:"amount"`
	CostAmount        float64    `json:"cost_amount"`
	Remark            string     `json:"remark,omitempty"`

	Breakdown *allocation.Amounts `json:"breakdown,omitempty"`
}
