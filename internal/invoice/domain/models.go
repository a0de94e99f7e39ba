// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	default:
		return false
	}
}

// Issuer is the professional's letterhead captured when the invoice is issued.
type Issuer struct {
	Name          string `json:"name"`
	CodiceFiscale string `json:"codice_fiscale,omitempty"`
	PartitaIVA    string `json:"partita_iva,omitempty"`
	Address       string `json:"address,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	IBAN          string `json:"iban,omitempty"`
}

// Invoice is an issued fattura. The fiscal columns are a snapshot of the breakdown
// computed at issue time and are never recomputed afterwards.
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	OwnerID       snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_invoice_owner_year_seq,priority:1" json:"-"`
	Number        string        `gorm:"not null;size:40" json:"number"`
	Year          int           `gorm:"not null;uniqueIndex:ux_invoice_owner_year_seq,priority:2" json:"year"`
	Sequence      int64         `gorm:"not null;uniqueIndex:ux_invoice_owner_year_seq,priority:3" json:"sequence"`
	PatientID     snowflake.ID  `gorm:"not null;index" json:"patient_id"`
	CatalogItemID *snowflake.ID `json:"catalog_item_id,omitempty"`
	Description   string        `gorm:"not null" json:"description"`
	Status        InvoiceStatus `gorm:"not null;size:16;index" json:"status"`
	IssueDate     time.Time     `gorm:"not null" json:"issue_date"`
	DueDate       time.Time     `gorm:"not null;index" json:"due_date"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`

	PatientName          string `gorm:"not null" json:"patient_name"`
	PatientCodiceFiscale string `gorm:"size:16" json:"patient_codice_fiscale,omitempty"`
	PatientAddress       string `json:"patient_address,omitempty"`
	PatientEmail         string `json:"-"`

	Issuer datatypes.JSONType[Issuer] `gorm:"not null" json:"issuer"`

	Regime         string          `gorm:"not null;size:4" json:"regime_fiscale"`
	EnpapPercent   decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"percentuale_enpap"`
	EnpapToPatient bool            `gorm:"not null" json:"enpap_a_paziente"`
	Imponibile     decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"imponibile"`
	Enpap          decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"enpap"`
	Bollo          decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"bollo"`
	Totale         decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"totale"`
	FraseLegale    string          `gorm:"not null" json:"frase_legale"`
	NotaEnpap      string          `gorm:"not null" json:"nota_enpap"`
	NotaBollo      *string         `json:"nota_bollo,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Overdue reports whether an issued invoice is past its due date at now.
func (i Invoice) Overdue(now time.Time) bool {
	return i.Status == InvoiceStatusIssued && DateOnly(now).After(DateOnly(i.DueDate))
}

// InvoiceSequence holds the last number issued per owner and year.
type InvoiceSequence struct {
	OwnerID snowflake.ID `gorm:"primaryKey"`
	Year    int          `gorm:"primaryKey"`
	LastSeq int64        `gorm:"not null"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
