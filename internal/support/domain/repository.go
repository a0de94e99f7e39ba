package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListTicketFilter struct {
	OwnerID *snowflake.ID
	Status  *TicketStatus
}

// InvoiceAmount is the projection used to build monthly totals.
type InvoiceAmount struct {
	IssueDate time.Time
	Totale    decimal.Decimal
}

type Repository interface {
	InsertTicket(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	UpdateTicketStatus(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	InsertMessage(ctx context.Context, db *gorm.DB, msg *TicketMessage) error
	FindTicket(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ticket, error)
	ListMessages(ctx context.Context, db *gorm.DB, ticketID snowflake.ID) ([]TicketMessage, error)
	ListTickets(ctx context.Context, db *gorm.DB, filter ListTicketFilter, page pagination.Pagination) ([]*Ticket, error)

	CountTable(ctx context.Context, db *gorm.DB, table string) (int64, error)
	CountTicketsByStatus(ctx context.Context, db *gorm.DB, status TicketStatus) (int64, error)
	ListInvoiceAmounts(ctx context.Context, db *gorm.DB, from, to time.Time) ([]InvoiceAmount, error)
}
