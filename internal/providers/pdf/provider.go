package pdf

import (
	"context"
)

// Party is one side of the document: the issuing professional or the patient.
type Party struct {
	Name          string
	CodiceFiscale string
	PartitaIVA    string
	Address       string
	Email         string
	Phone         string
	IBAN          string
}

// AmountLine is a pre-formatted amount row. The provider never computes amounts.
type AmountLine struct {
	Label  string
	Amount string
}

type InvoiceData struct {
	Number      string
	IssueDate   string
	DueDate     string
	Issuer      Party
	Patient     Party
	Description string
	Lines       []AmountLine
	Total       string
	FraseLegale string
	NotaEnpap   string
	NotaBollo   string
}

type ReceiptData struct {
	InvoiceData
	DatePaid string
}

type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
	GenerateReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}
