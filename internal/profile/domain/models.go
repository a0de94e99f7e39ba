package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Profile holds the professional's letterhead and the fiscal settings applied to every invoice.
type Profile struct {
	UserID           snowflake.ID    `gorm:"primaryKey;column:user_id" json:"user_id"`
	DisplayName      string          `gorm:"not null" json:"display_name"`
	CodiceFiscale    string          `gorm:"size:16" json:"codice_fiscale"`
	PartitaIVA       string          `gorm:"column:partita_iva;size:11" json:"partita_iva"`
	Address          string          `json:"address"`
	City             string          `json:"city"`
	PostalCode       string          `gorm:"size:5" json:"postal_code"`
	Province         string          `gorm:"size:2" json:"province"`
	IBAN             string          `gorm:"column:iban;size:34" json:"iban"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	RegimeFiscale    string          `gorm:"not null;size:4" json:"regime_fiscale"`
	PercentualeEnpap decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"percentuale_enpap"`
	EnpapAPaziente   bool            `gorm:"not null" json:"enpap_a_paziente"`
	InvoicePrefix    string          `gorm:"size:16" json:"invoice_prefix"`
	DueDays          int             `gorm:"not null" json:"due_days"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`

	// Stored is false for a profile derived from defaults that was never saved.
	Stored bool `gorm:"-" json:"stored"`
}

func (Profile) TableName() string { return "profiles" }
