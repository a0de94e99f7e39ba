// Package domain contains support tickets opened by professionals and answered from
// the admin console.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusAnswered TicketStatus = "answered"
	TicketStatusClosed   TicketStatus = "closed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusAnswered, TicketStatusClosed:
		return true
	default:
		return false
	}
}

type Ticket struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`
	// Ref is the public ULID quoted in emails and the UI.
	Ref       string       `gorm:"not null;size:26;uniqueIndex" json:"ref"`
	OwnerID   snowflake.ID `gorm:"not null;index" json:"owner_id"`
	Subject   string       `gorm:"not null" json:"subject"`
	Status    TicketStatus `gorm:"not null;size:16;index" json:"status"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`

	Messages []TicketMessage `gorm:"-" json:"messages,omitempty"`
}

func (Ticket) TableName() string { return "support_tickets" }

type TicketMessage struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TicketID  snowflake.ID `gorm:"not null;index" json:"ticket_id"`
	AuthorID  snowflake.ID `gorm:"not null" json:"author_id"`
	FromAdmin bool         `gorm:"not null" json:"from_admin"`
	Body      string       `gorm:"not null" json:"body"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (TicketMessage) TableName() string { return "support_ticket_messages" }

// MonthTotal is the invoiced amount of one calendar month, cancelled invoices excluded.
type MonthTotal struct {
	Month    int             `json:"month"`
	Invoices int64           `json:"invoices"`
	Totale   decimal.Decimal `json:"totale"`
}

type Stats struct {
	Year         int          `json:"year"`
	Users        int64        `json:"users"`
	Patients     int64        `json:"patients"`
	Invoices     int64        `json:"invoices"`
	OpenTickets  int64        `json:"open_tickets"`
	MonthlyTotal []MonthTotal `json:"monthly_totals"`
}
