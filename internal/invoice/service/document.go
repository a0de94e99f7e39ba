package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/parcella/internal/fiscal"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	"github.com/smallbiznis/parcella/internal/providers/email"
	"github.com/smallbiznis/parcella/internal/providers/pdf"
	"go.uber.org/zap"
)

const dateLayout = "02/01/2006"

func (s *Service) Render(ctx context.Context, id string) (invoicedomain.Document, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.Document{}, err
	}

	content, err := s.pdf.GenerateInvoice(ctx, invoiceData(invoice))
	if err != nil {
		s.log.Error("failed to render invoice", zap.String("invoice_number", invoice.Number), zap.Error(err))
		return invoicedomain.Document{}, err
	}

	return invoicedomain.Document{
		Filename: documentFilename("fattura", invoice),
		Content:  content,
	}, nil
}

// RenderReceipt produces the quietanza, which only exists once the invoice is paid.
func (s *Service) RenderReceipt(ctx context.Context, id string) (invoicedomain.Document, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.Document{}, err
	}
	if invoice.Status != invoicedomain.InvoiceStatusPaid || invoice.PaidAt == nil {
		return invoicedomain.Document{}, invoicedomain.ErrNotPaid
	}

	content, err := s.pdf.GenerateReceipt(ctx, pdf.ReceiptData{
		InvoiceData: invoiceData(invoice),
		DatePaid:    invoice.PaidAt.Format(dateLayout),
	})
	if err != nil {
		s.log.Error("failed to render receipt", zap.String("invoice_number", invoice.Number), zap.Error(err))
		return invoicedomain.Document{}, err
	}

	return invoicedomain.Document{
		Filename: documentFilename("quietanza", invoice),
		Content:  content,
	}, nil
}

// Send mails the rendered invoice to the address captured on the invoice.
func (s *Service) Send(ctx context.Context, id string) error {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == invoicedomain.InvoiceStatusCancelled {
		return invoicedomain.ErrInvalidTransition
	}
	if invoice.PatientEmail == "" {
		return invoicedomain.ErrPatientNoEmail
	}
	if s.mailer == nil {
		return email.ErrDisabled
	}

	doc, err := s.Render(ctx, id)
	if err != nil {
		return err
	}

	issuer := invoice.Issuer.Data()
	msg := email.Message{
		To:      []string{invoice.PatientEmail},
		Subject: fmt.Sprintf("Fattura n. %s - %s", invoice.Number, issuer.Name),
		Attachments: []email.Attachment{{
			Filename:    doc.Filename,
			ContentType: "application/pdf",
			Content:     doc.Content,
		}},
	}
	err = s.mailer.SendTemplate(ctx, msg, "invoice_sent", map[string]string{
		"PatientName": invoice.PatientName,
		"Number":      invoice.Number,
		"IssueDate":   invoice.IssueDate.Format(dateLayout),
		"DueDate":     invoice.DueDate.Format(dateLayout),
		"Total":       fiscal.FormatEuro(invoice.Totale),
		"IBAN":        issuer.IBAN,
		"Issuer":      issuer.Name,
	})
	if err != nil {
		s.log.Warn("failed to send invoice", zap.String("invoice_number", invoice.Number), zap.Error(err))
		return err
	}

	s.log.Info("invoice sent", zap.String("invoice_number", invoice.Number))
	return nil
}

func invoiceData(invoice invoicedomain.Invoice) pdf.InvoiceData {
	issuer := invoice.Issuer.Data()

	lines := []pdf.AmountLine{{Label: "Imponibile", Amount: fiscal.FormatEuro(invoice.Imponibile)}}
	if invoice.Enpap.IsPositive() {
		lines = append(lines, pdf.AmountLine{
			Label:  fmt.Sprintf("Contributo integrativo ENPAP %s%%", fiscal.Format2(invoice.EnpapPercent)),
			Amount: fiscal.FormatEuro(invoice.Enpap),
		})
	}
	if invoice.Bollo.IsPositive() {
		lines = append(lines, pdf.AmountLine{Label: "Imposta di bollo", Amount: fiscal.FormatEuro(invoice.Bollo)})
	}

	data := pdf.InvoiceData{
		Number:    invoice.Number,
		IssueDate: invoice.IssueDate.Format(dateLayout),
		DueDate:   invoice.DueDate.Format(dateLayout),
		Issuer: pdf.Party{
			Name:          issuer.Name,
			CodiceFiscale: issuer.CodiceFiscale,
			PartitaIVA:    issuer.PartitaIVA,
			Address:       issuer.Address,
			Email:         issuer.Email,
			Phone:         issuer.Phone,
			IBAN:          issuer.IBAN,
		},
		Patient: pdf.Party{
			Name:          invoice.PatientName,
			CodiceFiscale: invoice.PatientCodiceFiscale,
			Address:       invoice.PatientAddress,
		},
		Description: invoice.Description,
		Lines:       lines,
		Total:       fiscal.FormatEuro(invoice.Totale),
		FraseLegale: invoice.FraseLegale,
		NotaEnpap:   invoice.NotaEnpap,
	}
	if invoice.NotaBollo != nil {
		data.NotaBollo = *invoice.NotaBollo
	}
	return data
}
