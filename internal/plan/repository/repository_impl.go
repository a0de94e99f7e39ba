package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/plan/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, tier, changed_at, created_at
		 FROM plan_subscriptions WHERE user_id = ?`,
		userID,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.UserID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "changed_at"}),
	}).Create(sub).Error
}

func (r *repo) CountActivePatients(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM patients WHERE owner_id = ? AND archived_at IS NULL`,
		userID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountInvoicesIssued(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices WHERE owner_id = ? AND created_at >= ? AND created_at < ?`,
		userID,
		from,
		to,
	).Scan(&count).Error
	return count, err
}
