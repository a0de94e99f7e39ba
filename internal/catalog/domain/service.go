package domain

import (
	"context"
	"errors"
)

type CreateItemRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
}

type UpdateItemRequest = CreateItemRequest

type Service interface {
	Create(ctx context.Context, req CreateItemRequest) (Item, error)
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context, includeInactive bool) ([]Item, error)
	Update(ctx context.Context, id string, req UpdateItemRequest) (Item, error)
	Deactivate(ctx context.Context, id string) (Item, error)
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidDuration = errors.New("invalid_duration")
	ErrInactive        = errors.New("catalog_item_inactive")
	ErrNotFound        = errors.New("not_found")
)
