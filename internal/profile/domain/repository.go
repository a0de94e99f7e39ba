package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Profile, error)
	Save(ctx context.Context, db *gorm.DB, profile *Profile) error
}
