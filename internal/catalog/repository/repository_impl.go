package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO catalog_items (id, owner_id, name, description, price, duration_minutes, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.OwnerID,
		item.Name,
		item.Description,
		item.Price,
		item.DurationMinutes,
		item.Active,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Exec(
		`UPDATE catalog_items
		 SET name = ?, description = ?, price = ?, duration_minutes = ?, active = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		item.Name,
		item.Description,
		item.Price,
		item.DurationMinutes,
		item.Active,
		item.UpdatedAt,
		item.OwnerID,
		item.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, name, description, price, duration_minutes, active, created_at, updated_at
		 FROM catalog_items WHERE owner_id = ? AND id = ?`,
		ownerID,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, includeInactive bool) ([]*domain.Item, error) {
	var items []*domain.Item
	stmt := db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("owner_id = ?", ownerID)
	if !includeInactive {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("name asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
