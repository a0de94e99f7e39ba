package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPProviderSendWithAttachment(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotBody string
	)
	provider := NewSMTP(Config{Host: "mail.local", Port: 2525, From: "studio@example.it"})
	provider.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotBody = string(msg)
		return nil
	}

	err := provider.Send(context.Background(), Message{
		To:       []string{"mario@example.it"},
		Subject:  "Fattura 2026-0001",
		HTMLBody: "<p>ciao</p>",
		Attachments: []Attachment{{
			Filename:    "fattura-2026-0001.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.4 test"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"mario@example.it"}, gotTo)
	assert.Contains(t, gotBody, "multipart/mixed")
	assert.Contains(t, gotBody, `filename="fattura-2026-0001.pdf"`)
	assert.Contains(t, gotBody, "<p>ciao</p>")
}

func TestSMTPProviderRequiresRecipients(t *testing.T) {
	provider := NewSMTP(Config{Host: "mail.local", Port: 25})
	err := provider.Send(context.Background(), Message{Subject: "x"})
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestRenderInvoiceTemplate(t *testing.T) {
	html, err := RenderTemplate("invoice_sent", map[string]string{
		"PatientName": "Mario Rossi",
		"Number":      "2026-0001",
		"IssueDate":   "10/03/2026",
		"DueDate":     "09/04/2026",
		"Total":       "€ 102,00",
		"IBAN":        "IT60X0542811101000000123456",
		"Issuer":      "Dott.ssa Laura Bianchi",
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, "2026-0001"))
	assert.Contains(t, html, "IT60X0542811101000000123456")
}

func TestNoOpProviderIsDisabled(t *testing.T) {
	err := (&NoOpProvider{}).Send(context.Background(), Message{To: []string{"a@b.it"}})
	require.ErrorIs(t, err, ErrDisabled)
}
