package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	Update(ctx context.Context, db *gorm.DB, event *Event) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Event, error)
	// ListOverlapping returns events intersecting [from, to).
	ListOverlapping(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) ([]*Event, error)
}
