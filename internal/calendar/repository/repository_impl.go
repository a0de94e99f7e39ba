package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/calendar/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("owner_id = ? AND id = ?", event.OwnerID, event.ID).
		Updates(map[string]any{
			"patient_id": event.PatientID,
			"title":      event.Title,
			"kind":       event.Kind,
			"starts_at":  event.StartsAt,
			"ends_at":    event.EndsAt,
			"notes":      event.Notes,
			"metadata":   event.Metadata,
			"updated_at": event.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM calendar_events WHERE owner_id = ? AND id = ?`,
		ownerID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Event, error) {
	var event domain.Event
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Limit(1).
		Find(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) ListOverlapping(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) ([]*domain.Event, error) {
	var events []*domain.Event
	err := db.WithContext(ctx).
		// point-in-time reminders have starts_at = ends_at
		Where("owner_id = ? AND starts_at < ? AND (ends_at > ? OR starts_at >= ?)", ownerID, to, from, from).
		Order("starts_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
