package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/auth/domain"
	"github.com/smallbiznis/parcella/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(conn *gorm.DB) (domain.Repository, domain.SessionRepository) {
	r := &repo{db: conn}
	return r, r
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrUserExists
	}
	return err
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return first[domain.User](ctx, r.db, domain.ErrUserNotFound, "email = ?", email)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return first[domain.User](ctx, r.db, domain.ErrUserNotFound, "id = ?", id)
}

func (r *repo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return first[domain.Session](ctx, r.db, domain.ErrSessionNotFound, "session_token_hash = ?", tokenHash)
}

func (r *repo) UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error {
	return r.updateSession(ctx, sessionID, "last_seen_at", lastSeen)
}

func (r *repo) RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error {
	return r.updateSession(ctx, sessionID, "revoked_at", revokedAt)
}

func (r *repo) RevokeUserSessions(ctx context.Context, userID, keep snowflake.ID, revokedAt time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ? AND id <> ? AND revoked_at IS NULL", userID, keep).
		Update("revoked_at", revokedAt)
	return tx.RowsAffected, tx.Error
}

// first loads one row matching query, translating a miss into notFound.
func first[T any](ctx context.Context, conn *gorm.DB, notFound error, query string, args ...any) (*T, error) {
	var row T
	err := conn.WithContext(ctx).Where(query, args...).First(&row).Error
	if db.IsNotFound(err) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) updateSession(ctx context.Context, sessionID snowflake.ID, column string, value time.Time) error {
	tx := r.db.WithContext(ctx).Model(&domain.Session{}).Where("id = ?", sessionID).Update(column, value)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
