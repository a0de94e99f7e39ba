package domain

import (
	"context"

	"gorm.io/gorm"
)

type Service interface {
	Current(ctx context.Context) (Plan, error)
	ChangeTier(ctx context.Context, tier string) (Plan, error)
	// CheckPatientQuota fails with a *LimitError when one more patient would exceed the tier.
	CheckPatientQuota(ctx context.Context) error
	// CheckInvoiceQuota counts invoices issued in the current calendar month. Pass
	// the transaction that will insert the invoice so the count sees what it locked;
	// a nil tx reads outside any transaction.
	CheckInvoiceQuota(ctx context.Context, tx *gorm.DB) error
}
