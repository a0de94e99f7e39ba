package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/invoice/domain"
	"github.com/smallbiznis/parcella/pkg/db/option"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) NextSequence(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, year int) (int64, error) {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_seq": gorm.Expr("invoice_sequences.last_seq + 1"),
		}),
	}).Create(&domain.InvoiceSequence{OwnerID: ownerID, Year: year, LastSeq: 1}).Error
	if err != nil {
		return 0, err
	}

	var seq int64
	err = tx.WithContext(ctx).Raw(
		`SELECT last_seq FROM invoice_sequences WHERE owner_id = ? AND year = ?`,
		ownerID,
		year,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, paid_at = ?, cancelled_at = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		invoice.Status,
		invoice.PaidAt,
		invoice.CancelledAt,
		invoice.UpdatedAt,
		invoice.OwnerID,
		invoice.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("owner_id = ?", ownerID)
	if filter.PatientID != nil {
		stmt = stmt.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.Year != nil {
		stmt = stmt.Where("year = ?", *filter.Year)
	}
	stmt = option.ApplyPagination(page, "created_at").Apply(stmt)
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).
		// a due date covers its whole day: [due_date, due_date+1d) must overlap [from, to)
		Where("owner_id = ? AND status = ? AND due_date > ? AND due_date < ?",
			ownerID, domain.InvoiceStatusIssued, from.AddDate(0, 0, -1), to).
		Order("due_date asc, id asc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) CountOverdue(ctx context.Context, db *gorm.DB, asOf time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("status = ? AND due_date < ?", domain.InvoiceStatusIssued, asOf).
		Count(&count).Error
	return count, err
}

func (r *repo) ListOverdue(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).
		Where("status = ? AND due_date < ?", domain.InvoiceStatusIssued, asOf).
		Order("due_date asc, id asc").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
