package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/auth/domain"
	"github.com/smallbiznis/parcella/internal/auth/password"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/clock"
	"go.uber.org/zap"
)

type Service struct {
	log         *zap.Logger
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	genID       *snowflake.Node
	clock       clock.Clock
}

func New(log *zap.Logger, repo domain.Repository, sessionRepo domain.SessionRepository, genID *snowflake.Node) domain.Service {
	return NewWithClock(log, repo, sessionRepo, genID, clock.System())
}

func NewWithClock(log *zap.Logger, repo domain.Repository, sessionRepo domain.SessionRepository, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &Service{
		log:         log.Named("auth.service"),
		repo:        repo,
		sessionRepo: sessionRepo,
		genID:       genID,
		clock:       clk,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if !password.Acceptable(req.Password) {
		return nil, domain.ErrWeakPassword
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = authcontext.RoleProfessional
	}
	if role != authcontext.RoleProfessional && role != authcontext.RoleAdmin {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName(email)
	}
	user := &domain.User{
		ID:                  s.genID.Generate(),
		Email:               email,
		DisplayName:         displayName,
		Role:                role,
		PasswordHash:        &hashed,
		LastPasswordChanged: &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", role))
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		s.log.Debug("login rejected", zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueSession(ctx, user, req.UserAgent, req.IPAddress)
}

// ChangePassword also signs the user out everywhere except the current session.
func (s *Service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	principal, ok := authcontext.FromContext(ctx)
	if !ok || principal.UserID == 0 {
		return domain.ErrInvalidSession
	}
	userID := principal.UserID
	if !password.Acceptable(req.NewPassword) {
		return domain.ErrWeakPassword
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil || !password.Verify(req.CurrentPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{
		"password_hash":         hashed,
		"last_password_changed": now,
		"updated_at":            now,
	}); err != nil {
		return err
	}

	revoked, err := s.sessionRepo.RevokeUserSessions(ctx, userID, principal.SessionID, now)
	if err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user_id", userID.String()), zap.Int64("sessions_revoked", revoked))
	return nil
}

func (s *Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	userID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidSession
	}
	return s.repo.FindByID(ctx, userID)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func defaultDisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return email
}
