package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*AuthenticatedSession, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	CurrentUser(ctx context.Context) (*User, error)
}

type CreateUserRequest struct {
	Email       string
	Password    string
	DisplayName string
	// Role defaults to professional. Only the seed creates admins.
	Role string
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}

type ChangePasswordRequest struct {
	CurrentPassword string
	NewPassword     string
}

// AuthenticatedSession is what the session middleware needs to build a principal.
type AuthenticatedSession struct {
	Session *Session
	User    *User
}
