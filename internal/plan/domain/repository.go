package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Subscription, error)
	Upsert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	CountActivePatients(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
	CountInvoicesIssued(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) (int64, error)
}
