package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/catalog/domain"
	"github.com/smallbiznis/parcella/internal/catalog/repository"
	"github.com/smallbiznis/parcella/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (domain.Service, context.Context) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Item{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
	ctx := authcontext.WithPrincipal(context.Background(), authcontext.Principal{UserID: 3, Role: authcontext.RoleProfessional})
	return svc, ctx
}

func TestCatalogLifecycle(t *testing.T) {
	svc, ctx := setup(t)

	seduta, err := svc.Create(ctx, domain.CreateItemRequest{Name: "Seduta individuale", Price: "70.00", DurationMinutes: 50})
	require.NoError(t, err)
	assert.True(t, seduta.Active)
	assert.True(t, seduta.Price.Equal(decimal.NewFromInt(70)))

	_, err = svc.Create(ctx, domain.CreateItemRequest{Name: "Colloquio di coppia", Price: "90", DurationMinutes: 60})
	require.NoError(t, err)

	got, err := svc.Get(ctx, seduta.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Seduta individuale", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("70.00")))

	updated, err := svc.Update(ctx, seduta.ID.String(), domain.UpdateItemRequest{Name: "Seduta individuale", Price: "75.50", DurationMinutes: 50})
	require.NoError(t, err)
	assert.Equal(t, "75.5", updated.Price.String())

	_, err = svc.Deactivate(ctx, seduta.ID.String())
	require.NoError(t, err)

	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Colloquio di coppia", active[0].Name)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCatalogValidation(t *testing.T) {
	svc, ctx := setup(t)

	_, err := svc.Create(ctx, domain.CreateItemRequest{Name: "", Price: "10"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = svc.Create(ctx, domain.CreateItemRequest{Name: "X", Price: "-0.01"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = svc.Create(ctx, domain.CreateItemRequest{Name: "X", Price: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = svc.Create(ctx, domain.CreateItemRequest{Name: "X", Price: "70.001"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = svc.Create(ctx, domain.CreateItemRequest{Name: "X", Price: "1e15"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = svc.Create(ctx, domain.CreateItemRequest{Name: "X", Price: "10", DurationMinutes: 1000})
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
	_, err = svc.Get(ctx, "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.List(context.Background(), false)
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}
