package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Item is a billable service (prestazione) with its list price.
type Item struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	OwnerID         snowflake.ID    `gorm:"not null;index" json:"-"`
	Name            string          `gorm:"not null" json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	DurationMinutes int             `gorm:"not null" json:"duration_minutes"`
	Active          bool            `gorm:"not null" json:"active"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func (Item) TableName() string { return "catalog_items" }
