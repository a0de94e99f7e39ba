// Package seed prepares a fresh installation: the default role policy and, when
// configured, the bootstrap admin account.
package seed

import (
	"context"
	"errors"

	"github.com/casbin/casbin/v2"
	authdomain "github.com/smallbiznis/parcella/internal/auth/domain"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/authorization"
	"github.com/smallbiznis/parcella/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultAdminDisplay = "Parcella Admin"

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuthSvc  authdomain.Service
}

// Run is safe to call on every start.
func Run(p Params) error {
	log := p.Log.Named("seed")

	if err := authorization.SeedPolicies(p.Enforcer); err != nil {
		return err
	}

	created, err := EnsureAdmin(context.Background(), p.AuthSvc, p.Cfg.BootstrapAdminEmail, p.Cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info("bootstrap admin created", zap.String("email", p.Cfg.BootstrapAdminEmail))
	}
	return nil
}

// EnsureAdmin creates the admin account unless email is empty or already taken. It
// reports whether a user was created.
func EnsureAdmin(ctx context.Context, authSvc authdomain.Service, email, password string) (bool, error) {
	if email == "" {
		return false, nil
	}
	if password == "" {
		return false, errors.New("bootstrap admin password is required")
	}

	_, err := authSvc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: defaultAdminDisplay,
		Role:        authcontext.RoleAdmin,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, authdomain.ErrUserExists):
		return false, nil
	default:
		return false, err
	}
}
