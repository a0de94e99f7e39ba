package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/parcella/pkg/db/pagination"
)

type OpenTicketRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type ListTicketRequest struct {
	PageToken string
	PageSize  int
	Status    string
}

type ListTicketResponse struct {
	pagination.PageInfo
	Tickets []Ticket `json:"tickets"`
}

type Service interface {
	Open(ctx context.Context, req OpenTicketRequest) (Ticket, error)
	ListMine(ctx context.Context, req ListTicketRequest) (ListTicketResponse, error)
	// Get returns the ticket with its thread. Admins may read any ticket.
	Get(ctx context.Context, id string) (Ticket, error)
	Reply(ctx context.Context, id, body string) (Ticket, error)
	Close(ctx context.Context, id string) (Ticket, error)

	ListAll(ctx context.Context, req ListTicketRequest) (ListTicketResponse, error)
	AdminReply(ctx context.Context, id, body string) (Ticket, error)
	SetStatus(ctx context.Context, id, status string) (Ticket, error)
	Stats(ctx context.Context) (Stats, error)
}

var (
	ErrInvalidOwner   = errors.New("invalid_owner")
	ErrInvalidID      = errors.New("invalid_ticket_id")
	ErrInvalidSubject = errors.New("invalid_subject")
	ErrInvalidBody    = errors.New("invalid_body")
	ErrInvalidStatus  = errors.New("invalid_ticket_status")
	ErrTicketClosed   = errors.New("ticket_closed")
	ErrNotFound       = errors.New("ticket_not_found")
	ErrAdminOnly      = errors.New("admin_only")
)
