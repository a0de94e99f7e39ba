package domain

import (
	"errors"
	"fmt"
)

const (
	ResourcePatients = "patients"
	ResourceInvoices = "invoices"
)

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidTier      = errors.New("invalid_tier")
	ErrPlanLimitReached = errors.New("plan_limit_reached")
)

// LimitError tells which quota was hit. It matches ErrPlanLimitReached.
type LimitError struct {
	Tier     Tier
	Resource string
	Limit    int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("plan %s allows at most %d %s", e.Tier, e.Limit, e.Resource)
}

func (e *LimitError) Unwrap() error {
	return ErrPlanLimitReached
}
