package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/support/domain"
	"github.com/smallbiznis/parcella/pkg/db/option"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"gorm.io/gorm"
)

// countable lists the tables the admin console may count.
var countable = map[string]struct{}{
	"users":    {},
	"patients": {},
	"invoices": {},
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTicket(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) error {
	return db.WithContext(ctx).Create(ticket).Error
}

func (r *repo) UpdateTicketStatus(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) error {
	return db.WithContext(ctx).Exec(
		`UPDATE support_tickets SET status = ?, closed_at = ?, updated_at = ? WHERE id = ?`,
		ticket.Status,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
	).Error
}

func (r *repo) InsertMessage(ctx context.Context, db *gorm.DB, msg *domain.TicketMessage) error {
	return db.WithContext(ctx).Create(msg).Error
}

func (r *repo) FindTicket(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repo) ListMessages(ctx context.Context, db *gorm.DB, ticketID snowflake.ID) ([]domain.TicketMessage, error) {
	var messages []domain.TicketMessage
	err := db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at asc, id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repo) ListTickets(ctx context.Context, db *gorm.DB, filter domain.ListTicketFilter, page pagination.Pagination) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	stmt := db.WithContext(ctx).Model(&domain.Ticket{})
	if filter.OwnerID != nil {
		stmt = stmt.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	stmt = option.ApplyPagination(page, "updated_at").Apply(stmt)
	if err := stmt.Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) CountTable(ctx context.Context, db *gorm.DB, table string) (int64, error) {
	if _, ok := countable[table]; !ok {
		return 0, fmt.Errorf("table %q is not countable", table)
	}
	var count int64
	if err := db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) CountTicketsByStatus(ctx context.Context, db *gorm.DB, status domain.TicketStatus) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("status = ?", status).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListInvoiceAmounts(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.InvoiceAmount, error) {
	var rows []domain.InvoiceAmount
	err := db.WithContext(ctx).Raw(
		`SELECT issue_date, totale FROM invoices
		 WHERE status <> 'cancelled' AND issue_date >= ? AND issue_date < ?`,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
