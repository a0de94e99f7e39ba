package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/fiscal"
)

type UpsertProfileRequest struct {
	DisplayName      string `json:"display_name"`
	CodiceFiscale    string `json:"codice_fiscale"`
	PartitaIVA       string `json:"partita_iva"`
	Address          string `json:"address"`
	City             string `json:"city"`
	PostalCode       string `json:"postal_code"`
	Province         string `json:"province"`
	IBAN             string `json:"iban"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	RegimeFiscale    string `json:"regime_fiscale"`
	PercentualeEnpap string `json:"percentuale_enpap"`
	EnpapAPaziente   bool   `json:"enpap_a_paziente"`
	InvoicePrefix    string `json:"invoice_prefix"`
	DueDays          *int   `json:"due_days"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	// Get returns the stored profile, or one built from the fiscal defaults.
	Get(ctx context.Context) (Profile, error)
	Upsert(ctx context.Context, req UpsertProfileRequest) (Profile, error)
	// FiscalPreview computes the breakdown an invoice of amount would carry.
	FiscalPreview(ctx context.Context, amount decimal.Decimal) (fiscal.Result, error)
}

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidDisplayName   = errors.New("invalid_display_name")
	ErrInvalidCodiceFiscale = errors.New("invalid_codice_fiscale")
	ErrInvalidPartitaIVA    = errors.New("invalid_partita_iva")
	ErrInvalidPercentage    = errors.New("invalid_enpap_percentage")
	ErrInvalidPrefix        = errors.New("invalid_invoice_prefix")
	ErrInvalidDueDays       = errors.New("invalid_due_days")
)
