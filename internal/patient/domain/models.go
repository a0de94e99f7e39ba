package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Patient struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID       snowflake.ID `gorm:"not null;index" json:"-"`
	FirstName     string       `gorm:"not null" json:"first_name"`
	LastName      string       `gorm:"not null" json:"last_name"`
	CodiceFiscale string       `gorm:"size:16;index" json:"codice_fiscale,omitempty"`
	Email         string       `json:"email,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	Address       string       `json:"address,omitempty"`
	City          string       `json:"city,omitempty"`
	PostalCode    string       `gorm:"size:5" json:"postal_code,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	ArchivedAt    *time.Time   `json:"archived_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (Patient) TableName() string { return "patients" }

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Patient) Archived() bool {
	return p.ArchivedAt != nil
}
