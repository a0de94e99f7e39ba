package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, item *Item) error
	Update(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Item, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, includeInactive bool) ([]*Item, error)
}
