package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := newEnforcer(nil)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func withRole(role string) context.Context {
	return authcontext.WithPrincipal(context.Background(), authcontext.Principal{UserID: 42, Role: role})
}

func TestAuthorize(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name    string
		ctx     context.Context
		object  string
		action  string
		wantErr error
	}{
		{"professional creates invoice", withRole(authcontext.RoleProfessional), ObjectInvoice, ActionCreate, nil},
		{"professional uses calendar wildcard", withRole(authcontext.RoleProfessional), ObjectCalendar, ActionDelete, nil},
		{"professional denied admin stats", withRole(authcontext.RoleProfessional), ObjectAdminStats, ActionView, ErrForbidden},
		{"admin views stats", withRole(authcontext.RoleAdmin), ObjectAdminStats, ActionView, nil},
		{"admin inherits professional", withRole(authcontext.RoleAdmin), ObjectPatient, ActionCreate, nil},
		{"anonymous", context.Background(), ObjectInvoice, ActionView, ErrInvalidActor},
		{"empty object", withRole(authcontext.RoleAdmin), " ", ActionView, ErrInvalidObject},
		{"empty action", withRole(authcontext.RoleAdmin), ObjectPlan, "", ErrInvalidAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Authorize(tt.ctx, tt.object, tt.action)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSeedPoliciesIsIdempotent(t *testing.T) {
	enforcer, err := newEnforcer(nil)
	require.NoError(t, err)

	before, err := enforcer.GetPolicy()
	require.NoError(t, err)
	require.NoError(t, SeedPolicies(enforcer))
	after, err := enforcer.GetPolicy()
	require.NoError(t, err)

	assert.Len(t, after, len(before))
}
