package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, patient *Patient) error
	Update(ctx context.Context, db *gorm.DB, patient *Patient) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Patient, error)
	FindByCodiceFiscale(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, cf string) (*Patient, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListPatientFilter, page pagination.Pagination) ([]*Patient, error)
}
