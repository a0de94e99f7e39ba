// Package domain contains the calendar event model and the agenda view.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EventKind string

const (
	EventKindAppointment EventKind = "appointment"
	EventKindReminder    EventKind = "reminder"
	EventKindOther       EventKind = "other"
	// EventKindInvoiceDue is never stored; the agenda derives it from issued invoices.
	EventKindInvoiceDue EventKind = "invoice_due"
)

// Storable reports whether k may be persisted as an Event.
func (k EventKind) Storable() bool {
	switch k {
	case EventKindAppointment, EventKindReminder, EventKindOther:
		return true
	default:
		return false
	}
}

func (k EventKind) Valid() bool {
	return k.Storable() || k == EventKindInvoiceDue
}

type Event struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	OwnerID   snowflake.ID   `gorm:"not null;index:ix_calendar_owner_start,priority:1" json:"-"`
	PatientID *snowflake.ID  `gorm:"index" json:"patient_id,omitempty"`
	Title     string         `gorm:"not null" json:"title"`
	Kind      EventKind      `gorm:"not null;size:16" json:"kind"`
	StartsAt  time.Time      `gorm:"not null;index:ix_calendar_owner_start,priority:2" json:"starts_at"`
	EndsAt    time.Time      `gorm:"not null" json:"ends_at"`
	Notes     string         `json:"notes,omitempty"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Event) TableName() string { return "calendar_events" }

// AgendaEntry is one row of the merged agenda. Entries derived from invoices carry
// InvoiceID and have no stored event behind them.
type AgendaEntry struct {
	ID        string        `json:"id"`
	Kind      EventKind     `json:"kind"`
	Title     string        `json:"title"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	PatientID *snowflake.ID `json:"patient_id,omitempty"`
	InvoiceID *snowflake.ID `json:"invoice_id,omitempty"`
	Amount    string        `json:"amount,omitempty"`
	Notes     string        `json:"notes,omitempty"`
}
