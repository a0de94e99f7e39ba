package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/smallbiznis/parcella/internal/auth/domain"
	calendardomain "github.com/smallbiznis/parcella/internal/calendar/domain"
	catalogdomain "github.com/smallbiznis/parcella/internal/catalog/domain"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/parcella/internal/patient/domain"
	plandomain "github.com/smallbiznis/parcella/internal/plan/domain"
	profiledomain "github.com/smallbiznis/parcella/internal/profile/domain"
	supportdomain "github.com/smallbiznis/parcella/internal/support/domain"
	"github.com/smallbiznis/parcella/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted model, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Session{},
		&profiledomain.Profile{},
		&plandomain.Subscription{},
		&patientdomain.Patient{},
		&catalogdomain.Item{},
		&invoicedomain.InvoiceSequence{},
		&invoicedomain.Invoice{},
		&calendardomain.Event{},
		&supportdomain.Ticket{},
		&supportdomain.TicketMessage{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL files; sqlite
// and mysql deployments are migrated from the models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if !db.IsPostgres(conn) {
		return conn.AutoMigrate(Models()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
