package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/profile/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.UserID == 0 {
		return nil, nil
	}
	profile.Stored = true
	return &profile, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, profile *domain.Profile) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "codice_fiscale", "partita_iva", "address", "city",
			"postal_code", "province", "iban", "email", "phone", "regime_fiscale",
			"percentuale_enpap", "enpap_a_paziente", "invoice_prefix", "due_days", "updated_at",
		}),
	}).Create(profile).Error
}
