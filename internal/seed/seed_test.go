package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/parcella/internal/auth/domain"
	"github.com/smallbiznis/parcella/internal/auth/repository"
	authservice "github.com/smallbiznis/parcella/internal/auth/service"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureAdminIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo, sessionRepo := repository.New(conn)
	svc := authservice.New(zap.NewNop(), repo, sessionRepo, node)
	ctx := context.Background()

	created, err := EnsureAdmin(ctx, svc, "admin@parcella.it", "bootstrap-secret")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdmin(ctx, svc, "admin@parcella.it", "bootstrap-secret")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := svc.Login(ctx, authdomain.LoginRequest{Email: "admin@parcella.it", Password: "bootstrap-secret"})
	require.NoError(t, err)
	assert.Equal(t, authcontext.RoleAdmin, res.User.Role)
}

func TestEnsureAdminSkipsWithoutEmail(t *testing.T) {
	created, err := EnsureAdmin(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = EnsureAdmin(context.Background(), nil, "admin@parcella.it", "")
	assert.Error(t, err)
}
