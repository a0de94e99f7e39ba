package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/parcella/internal/auth/domain"
)

const (
	sessionTokenBytes = 32
	sessionTTL        = 7 * 24 * time.Hour

	// last_seen_at is written at most once per interval per session.
	lastSeenResolution = time.Minute
)

// issueSession stores a new session for user and returns the raw token, which
// exists only in the response cookie.
func (s *Service) issueSession(ctx context.Context, user *domain.User, userAgent, ip string) (*domain.LoginResult, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)

	now := s.clock.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: tokenDigest(raw),
		UserAgent:        strings.TrimSpace(userAgent),
		IPAddress:        strings.TrimSpace(ip),
		ExpiresAt:        now.Add(sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		User:      user,
		RawToken:  raw,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

// lookupSession resolves a raw cookie token; unknown tokens read as an invalid session.
func (s *Service) lookupSession(ctx context.Context, rawToken string) (*domain.Session, error) {
	raw := strings.TrimSpace(rawToken)
	if raw == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, tokenDigest(raw))
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, domain.ErrInvalidSession
	}
	return session, err
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	session, err := s.lookupSession(ctx, rawToken)
	if err != nil {
		return err
	}
	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.AuthenticatedSession, error) {
	session, err := s.lookupSession(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	switch {
	case session.RevokedAt != nil:
		return nil, domain.ErrSessionRevoked
	case now.After(session.ExpiresAt):
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}

	if now.Sub(session.LastSeenAt) >= lastSeenResolution {
		if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
			return nil, err
		}
		session.LastSeenAt = now
	}

	return &domain.AuthenticatedSession{Session: session, User: user}, nil
}

func tokenDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
