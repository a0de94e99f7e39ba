package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/parcella/pkg/db/pagination"
)

// CreateInvoiceRequest bills a patient. Amount overrides the catalog price and is
// required when no catalog item is given.
type CreateInvoiceRequest struct {
	PatientID     string     `json:"patient_id"`
	CatalogItemID string     `json:"catalog_item_id"`
	Amount        string     `json:"amount"`
	Description   string     `json:"description"`
	IssueDate     *time.Time `json:"issue_date"`
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int
	PatientID string
	Status    string
	Year      int
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Document is a rendered PDF ready to be served.
type Document struct {
	Filename string
	Content  []byte
}

// OverdueSummary holds the number of overdue invoices and the oldest of them.
// Invoices may be shorter than Count.
type OverdueSummary struct {
	Count    int
	Invoices []Invoice
}

func (s OverdueSummary) Truncated() bool {
	return s.Count > len(s.Invoices)
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	MarkPaid(ctx context.Context, id string, paidAt *time.Time) (Invoice, error)
	Cancel(ctx context.Context, id string) (Invoice, error)
	Render(ctx context.Context, id string) (Document, error)
	RenderReceipt(ctx context.Context, id string) (Document, error)
	Send(ctx context.Context, id string) error
	// ListDue returns the caller's issued invoices due in [from, to).
	ListDue(ctx context.Context, from, to time.Time) ([]Invoice, error)
	// ListOverdue scans every owner. It is meant for background jobs.
	ListOverdue(ctx context.Context, asOf time.Time) (OverdueSummary, error)
}

var (
	ErrInvalidOwner       = errors.New("invalid_owner")
	ErrInvalidInvoiceID   = errors.New("invalid_invoice_id")
	ErrInvalidPatient     = errors.New("invalid_patient")
	ErrInvalidCatalogItem = errors.New("invalid_catalog_item")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidIssueDate   = errors.New("invalid_issue_date")
	ErrInvalidTransition  = errors.New("invalid_status_transition")
	ErrMissingDescription = errors.New("invalid_description")
	ErrPatientArchived    = errors.New("patient_archived")
	ErrPatientNoEmail     = errors.New("patient_email_missing")
	ErrInvoiceNotFound    = errors.New("invoice_not_found")
	ErrNotPaid            = errors.New("invoice_not_paid")
)
