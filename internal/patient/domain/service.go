package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/parcella/pkg/db/pagination"
)

type ListPatientRequest struct {
	PageToken       string
	PageSize        int
	Query           string
	IncludeArchived bool
}

type ListPatientFilter struct {
	Query           string
	IncludeArchived bool
}

type ListPatientResponse struct {
	pagination.PageInfo
	Patients []Patient `json:"patients"`
}

type CreatePatientRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	CodiceFiscale string `json:"codice_fiscale"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	PostalCode    string `json:"postal_code"`
	Notes         string `json:"notes"`
}

// UpdatePatientRequest replaces the editable fields of a patient.
type UpdatePatientRequest = CreatePatientRequest

type Service interface {
	Create(ctx context.Context, req CreatePatientRequest) (Patient, error)
	Get(ctx context.Context, id string) (Patient, error)
	List(ctx context.Context, req ListPatientRequest) (ListPatientResponse, error)
	Update(ctx context.Context, id string, req UpdatePatientRequest) (Patient, error)
	Archive(ctx context.Context, id string) (Patient, error)
}

var (
	ErrInvalidOwner         = errors.New("invalid_owner")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrInvalidCodiceFiscale = errors.New("invalid_codice_fiscale")
	ErrDuplicatePatient     = errors.New("duplicate_patient")
	ErrArchived             = errors.New("patient_archived")
	ErrNotFound             = errors.New("not_found")
)
