package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() InvoiceData {
	return InvoiceData{
		Number:    "LB2026-0001",
		IssueDate: "03/03/2026",
		DueDate:   "02/04/2026",
		Issuer: Party{
			Name:          "Dott.ssa Laura Bianchi",
			CodiceFiscale: "BNCLRA80A41H501D",
			PartitaIVA:    "12345678903",
			IBAN:          "IT60X0542811101000000123456",
		},
		Patient:     Party{Name: "Mario Rossi", CodiceFiscale: "RSSMRA85T10A562S"},
		Description: "Seduta individuale",
		Lines: []AmountLine{
			{Label: "Imponibile", Amount: "€ 100,00"},
			{Label: "Contributo integrativo ENPAP 2%", Amount: "€ 2,00"},
			{Label: "Imposta di bollo", Amount: "€ 2,00"},
		},
		Total:       "€ 104,00",
		FraseLegale: "Operazione esente da IVA ai sensi dell'art. 10",
		NotaEnpap:   "Contributo integrativo ENPAP addebitato al paziente",
		NotaBollo:   "Imposta di bollo assolta in modo virtuale",
	}
}

func TestGenerateInvoice(t *testing.T) {
	out, err := New().GenerateInvoice(context.Background(), sampleInvoice())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateReceipt(t *testing.T) {
	out, err := New().GenerateReceipt(context.Background(), ReceiptData{InvoiceData: sampleInvoice(), DatePaid: "10/03/2026"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateRequiresNumber(t *testing.T) {
	data := sampleInvoice()
	data.Number = " "
	_, err := New().GenerateInvoice(context.Background(), data)
	assert.ErrorIs(t, err, ErrMissingNumber)

	_, err = New().GenerateReceipt(context.Background(), ReceiptData{InvoiceData: data})
	assert.ErrorIs(t, err, ErrMissingNumber)
}
