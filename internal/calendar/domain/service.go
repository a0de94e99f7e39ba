package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// MaxAgendaRange bounds a single agenda query.
const MaxAgendaRange = 366 * 24 * time.Hour

type CreateEventRequest struct {
	Title     string          `json:"title"`
	PatientID string          `json:"patient_id"`
	Kind      string          `json:"kind"`
	StartsAt  time.Time       `json:"starts_at"`
	EndsAt    time.Time       `json:"ends_at"`
	Notes     string          `json:"notes"`
	Metadata  json.RawMessage `json:"metadata"`
}

type UpdateEventRequest = CreateEventRequest

type AgendaRequest struct {
	From  time.Time
	To    time.Time
	Kinds []string
}

type Service interface {
	Create(ctx context.Context, req CreateEventRequest) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
	Update(ctx context.Context, id string, req UpdateEventRequest) (Event, error)
	Delete(ctx context.Context, id string) error
	Agenda(ctx context.Context, req AgendaRequest) ([]AgendaEntry, error)
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidID       = errors.New("invalid_event_id")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidKind     = errors.New("invalid_event_kind")
	ErrInvalidTimes    = errors.New("invalid_event_times")
	ErrInvalidPatient  = errors.New("invalid_patient")
	ErrInvalidMetadata = errors.New("invalid_metadata")
	ErrInvalidRange    = errors.New("invalid_agenda_range")
	ErrNotFound        = errors.New("event_not_found")
)
