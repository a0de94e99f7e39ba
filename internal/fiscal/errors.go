package fiscal

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRegime = errors.New("invalid_regime")
	ErrInvalidAmount = errors.New("invalid_amount")
)

// InvalidRegimeError is returned for a regime code other than RF01 and RF19.
type InvalidRegimeError struct {
	Code string
}

func (e *InvalidRegimeError) Error() string {
	return fmt.Sprintf("invalid_regime: unrecognized regime code %q", e.Code)
}

func (e *InvalidRegimeError) Unwrap() error { return ErrInvalidRegime }

// InvalidAmountError is returned when an amount or a percentage is negative.
type InvalidAmountError struct {
	Field string
	Value string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid_amount: %s must not be negative, got %s", e.Field, e.Value)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// RejectReason maps a calculator error to a short label for metrics.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRegime):
		return "invalid_regime"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "unknown"
	}
}
