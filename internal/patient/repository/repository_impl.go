package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/patient/domain"
	"github.com/smallbiznis/parcella/pkg/db/option"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"gorm.io/gorm"
)

const patientColumns = `id, owner_id, first_name, last_name, codice_fiscale, email, phone,
	address, city, postal_code, notes, archived_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, patient *domain.Patient) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO patients (`+patientColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		patient.ID,
		patient.OwnerID,
		patient.FirstName,
		patient.LastName,
		patient.CodiceFiscale,
		patient.Email,
		patient.Phone,
		patient.Address,
		patient.City,
		patient.PostalCode,
		patient.Notes,
		patient.ArchivedAt,
		patient.CreatedAt,
		patient.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, patient *domain.Patient) error {
	return db.WithContext(ctx).Exec(
		`UPDATE patients
		 SET first_name = ?, last_name = ?, codice_fiscale = ?, email = ?, phone = ?,
		     address = ?, city = ?, postal_code = ?, notes = ?, archived_at = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		patient.FirstName,
		patient.LastName,
		patient.CodiceFiscale,
		patient.Email,
		patient.Phone,
		patient.Address,
		patient.City,
		patient.PostalCode,
		patient.Notes,
		patient.ArchivedAt,
		patient.UpdatedAt,
		patient.OwnerID,
		patient.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Patient, error) {
	var patient domain.Patient
	err := db.WithContext(ctx).Raw(
		`SELECT `+patientColumns+`
		 FROM patients WHERE owner_id = ? AND id = ?`,
		ownerID,
		id,
	).Scan(&patient).Error
	if err != nil {
		return nil, err
	}
	if patient.ID == 0 {
		return nil, nil
	}
	return &patient, nil
}

func (r *repo) FindByCodiceFiscale(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, cf string) (*domain.Patient, error) {
	var patient domain.Patient
	err := db.WithContext(ctx).Raw(
		`SELECT `+patientColumns+`
		 FROM patients WHERE owner_id = ? AND codice_fiscale = ?
		 LIMIT 1`,
		ownerID,
		cf,
	).Scan(&patient).Error
	if err != nil {
		return nil, err
	}
	if patient.ID == 0 {
		return nil, nil
	}
	return &patient, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListPatientFilter, page pagination.Pagination) ([]*domain.Patient, error) {
	var patients []*domain.Patient
	stmt := db.WithContext(ctx).
		Model(&domain.Patient{}).
		Where("owner_id = ?", ownerID)
	if !filter.IncludeArchived {
		stmt = stmt.Where("archived_at IS NULL")
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where(
			"(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(codice_fiscale) LIKE ?)",
			like, like, like,
		)
	}
	stmt = option.ApplyPagination(page, "created_at").Apply(stmt)
	if err := stmt.Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}
