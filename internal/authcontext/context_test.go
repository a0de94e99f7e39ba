package authcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestPrincipalRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: snowflake.ID(7), Role: RoleAdmin})
	p, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.True(t, p.IsAdmin())

	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(7), id)

	_, ok = FromContext(WithPrincipal(context.Background(), Principal{}))
	assert.False(t, ok)
}
