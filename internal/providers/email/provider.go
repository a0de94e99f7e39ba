package email

import (
	"context"
	"errors"
)

var (
	ErrNoRecipients = errors.New("email_no_recipients")
	ErrDisabled     = errors.New("email_disabled")
)

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Message struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
	SendTemplate(ctx context.Context, msg Message, templateName string, data any) error
}

// NoOpProvider is used when SMTP is not configured.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	return ErrDisabled
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, msg Message, templateName string, data any) error {
	return ErrDisabled
}
