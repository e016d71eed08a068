package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/wagedesk/wagedesk/internal/allocation"
)

// MoneyColumns mirrors allocation.Amounts as flat database columns. The same
// sixteen sub-account columns appear three times on a certificate (demand,
// recovered, outstanding) via gorm embedded prefixes, and once on a ledger
// entry (the per-payment breakdown). These column names are the de-facto
// schema shared with the reporting layer — do not rename.
type MoneyColumns struct {
	S7AEE1  float64 `gorm:"column:7a_ee1" json:"7a_ee1"`
	S7AER1  float64 `gorm:"column:7a_er1" json:"7a_er1"`
	S7AAc10 float64 `gorm:"column:7a_ac10" json:"7a_ac10"`
	S7AAc21 float64 `gorm:"column:7a_ac21" json:"7a_ac21"`
	S7AAc2  float64 `gorm:"column:7a_ac2" json:"7a_ac2"`
	S7AAc22 float64 `gorm:"column:7a_ac22" json:"7a_ac22"`

	S7QAc1  float64 `gorm:"column:7q_ac1" json:"7q_ac1"`
	S7QAc10 float64 `gorm:"column:7q_ac10" json:"7q_ac10"`
	S7QAc21 float64 `gorm:"column:7q_ac21" json:"7q_ac21"`
	S7QAc2  float64 `gorm:"column:7q_ac2" json:"7q_ac2"`
	S7QAc22 float64 `gorm:"column:7q_ac22" json:"7q_ac22"`

	S14BAc1  float64 `gorm:"column:14b_ac1" json:"14b_ac1"`
	S14BAc10 float64 `gorm:"column:14b_ac10" json:"14b_ac10"`
	S14BAc21 float64 `gorm:"column:14b_ac21" json:"14b_ac21"`
	S14BAc2  float64 `gorm:"column:14b_ac2" json:"14b_ac2"`
	S14BAc22 float64 `gorm:"column:14b_ac22" json:"14b_ac22"`
}

// Amounts converts the flat columns back into the engine's value type.
func (m MoneyColumns) Amounts() allocation.Amounts {
	return allocation.Amounts{
		S7A: allocation.Section7A{
			EE1:  m.S7AEE1,
			ER1:  m.S7AER1,
			Ac10: m.S7AAc10,
			Ac21: m.S7AAc21,
			Ac2:  m.S7AAc2,
			Ac22: m.S7AAc22,
		},
		S7Q: allocation.Section5{
			Ac1:  m.S7QAc1,
			Ac10: m.S7QAc10,
			Ac21: m.S7QAc21,
			Ac2:  m.S7QAc2,
			Ac22: m.S7QAc22,
		},
		S14B: allocation.Section5{
			Ac1:  m.S14BAc1,
			Ac10: m.S14BAc10,
			Ac21: m.S14BAc21,
			Ac2:  m.S14BAc2,
			Ac22: m.S14BAc22,
		},
	}
}

// ColumnsFrom flattens engine amounts into database columns.
func ColumnsFrom(a allocation.Amounts) MoneyColumns {
	return MoneyColumns{
		S7AEE1:  a.S7A.EE1,
		S7AER1:  a.S7A.ER1,
		S7AAc10: a.S7A.Ac10,
		S7AAc21: a.S7A.Ac21,
		S7AAc2:  a.S7A.Ac2,
		S7AAc22: a.S7A.Ac22,

		S7QAc1:  a.S7Q.Ac1,
		S7QAc10: a.S7Q.Ac10,
		S7QAc21: a.S7Q.Ac21,
		S7QAc2:  a.S7Q.Ac2,
		S7QAc22: a.S7Q.Ac22,

		S14BAc1:  a.S14B.Ac1,
		S14BAc10: a.S14B.Ac10,
		S14BAc21: a.S14B.Ac21,
		S14BAc2:  a.S14B.Ac2,
		S14BAc22: a.S14B.Ac22,
	}
}

// Certificate is one recovery certificate (RRC) against an establishment.
// Establishment-shared fields (office, officer, address, cost figures,
// remarks) are denormalized onto every certificate sharing the establishment
// code and kept identical by fan-out writes.
type Certificate struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_certificates_org_number,priority:1" json:"organization_id"`

	CertificateNumber string `gorm:"type:text;not null;uniqueIndex:ux_certificates_org_number,priority:2" json:"certificate_number"`
	EstablishmentCode string `gorm:"type:text;not null;index" json:"establishment_code"`
	EstablishmentName string `gorm:"type:text" json:"establishment_name"`

	// Synced one-way from the establishment master.
	Address1 string `gorm:"type:text" json:"address1,omitempty"`
	Address2 string `gorm:"type:text" json:"address2,omitempty"`
	City     string `gorm:"type:text" json:"city,omitempty"`
	State    string `gorm:"type:text" json:"state,omitempty"`
	Pincode  string `gorm:"type:text" json:"pincode,omitempty"`
	Phone    string `gorm:"type:text" json:"phone,omitempty"`
	Email    string `gorm:"type:text" json:"email,omitempty"`

	// Establishment-shared fields, identical across the group.
	Office             string `gorm:"type:text" json:"office,omitempty"`
	EnforcementOfficer string `gorm:"type:text" json:"enforcement_officer,omitempty"`
	Remarks            string `gorm:"type:text" json:"remarks,omitempty"`

	// Which sections the legal order permits recovery against, free text.
	Eligibility string `gorm:"type:text" json:"eligibility,omitempty"`

	Demand      MoneyColumns `gorm:"embedded;embeddedPrefix:demand_" json:"demand"`
	Recovered   MoneyColumns `gorm:"embedded;embeddedPrefix:recovered_" json:"recovered"`
	Outstanding MoneyColumns `gorm:"embedded;embeddedPrefix:outstanding_" json:"outstanding"`

	Demand7A    float64 `gorm:"column:demand_7a" json:"demand_7a"`
	Demand7Q    float64 `gorm:"column:demand_7q" json:"demand_7q"`
	Demand14B   float64 `gorm:"column:demand_14b" json:"demand_14b"`
	DemandTotal float64 `gorm:"column:demand_total" json:"demand_total"`

	Recovered7A    float64 `gorm:"column:recovered_7a" json:"recovered_7a"`
	Recovered7Q    float64 `gorm:"column:recovered_7q" json:"recovered_7q"`
	Recovered14B   float64 `gorm:"column:recovered_14b" json:"recovered_14b"`
	RecoveredTotal float64 `gorm:"column:recovered_total" json:"recovered_total"`

	Outstanding7A    float64 `gorm:"column:outstanding_7a" json:"outstanding_7a"`
	Outstanding7Q    float64 `gorm:"column:outstanding_7q" json:"outstanding_7q"`
	Outstanding14B   float64 `gorm:"column:outstanding_14b" json:"outstanding_14b"`
	OutstandingTotal float64 `gorm:"column:outstanding_total" json:"outstanding_total"`

	// Recovery-cost figures are establishment-level, shared across the group.
	CostLevied      float64 `gorm:"column:cost_levied" json:"cost_levied"`
	CostReceived    float64 `gorm:"column:cost_received" json:"cost_received"`
	CostOutstanding float64 `gorm:"column:cost_outstanding" json:"cost_outstanding"`
	TotalWithCost   float64 `gorm:"column:total_with_cost" json:"total_with_cost"`

	// Establishment-group rollups, denormalized onto every member.
	GroupDemandTotal      float64 `gorm:"column:group_demand_total" json:"group_demand_total"`
	GroupRecoveredTotal   float64 `gorm:"column:group_recovered_total" json:"group_recovered_total"`
	GroupOutstandingTotal float64 `gorm:"column:group_outstanding_total" json:"group_outstanding_total"`
	GroupWithCostTotal    float64 `gorm:"column:group_with_cost_total" json:"group_with_cost_total"`

	Deleted   bool       `gorm:"not null;default:false;index" json:"deleted"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Certificate) TableName() string { return "certificates" }

// Ref identifies a certificate by its business key within one org.
type Ref struct {
	EstablishmentCode string `json:"establishment_code"`
	CertificateNumber string `json:"certificate_number"`
}

// SharedFieldsPatch is a direct edit of the establishment-shared fields.
// Remarks here REPLACE the stored remarks — the append path is AppendRemark.
type SharedFieldsPatch struct {
	Office             *string  `json:"office,omitempty"`
	EnforcementOfficer *string  `json:"enforcement_officer,omitempty"`
	CostLevied         *float64 `json:"cost_levied,omitempty"`
	Remarks            *string  `json:"remarks,omitempty"`
}
