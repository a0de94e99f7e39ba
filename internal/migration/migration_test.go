package migration

import (
	"io/fs"
	"testing"

	"github.com/smallbiznis/parcella/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAutoMigratesSQLite(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, Run(conn))
	// idempotent
	require.NoError(t, Run(conn))

	for _, table := range []string{
		"users", "sessions", "profiles", "plan_subscriptions", "patients", "catalog_items",
		"invoice_sequences", "invoices", "calendar_events", "support_tickets", "support_ticket_messages",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Equal(t, len(ups), len(downs))
}
