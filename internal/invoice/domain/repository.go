package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListInvoiceFilter struct {
	PatientID *snowflake.ID
	Status    *InvoiceStatus
	Year      *int
}

type Repository interface {
	// NextSequence increments and returns the counter for (owner, year). Call it inside a transaction.
	NextSequence(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, year int) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateStatus(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	// ListDue returns issued invoices of owner whose due day overlaps [from, to).
	ListDue(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) ([]*Invoice, error)
	// ListOverdue returns issued invoices of every owner due before asOf.
	ListOverdue(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]*Invoice, error)
	CountOverdue(ctx context.Context, db *gorm.DB, asOf time.Time) (int64, error)
}
