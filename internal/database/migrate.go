package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrator applies the embedded schema migrations.
type Migrator struct {
	URL    string
	Logger *slog.Logger
}

func NewMigrator(url string, logger *slog.Logger) Migrator {
	return Migrator{URL: url, Logger: logger}
}

// Up applies all pending migrations.
func (m Migrator) Up() error {
	return m.run(func(mg *migrate.Migrate) error {
		version, dirty, err := mg.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("checking migration version: %w", err)
		}
		if dirty {
			return fmt.Errorf("database is in a dirty state (version %d), manual intervention required", version)
		}

		if err := mg.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				m.Logger.Info("Database is up to date", "version", version)
				return nil
			}
			return fmt.Errorf("applying migrations: %w", err)
		}

		newVersion, _, _ := mg.Version()
		m.Logger.Info("Database migrated", "from", version, "to", newVersion)
		return nil
	})
}

// Down rolls back the given number of steps, or everything when steps is zero.
func (m Migrator) Down(steps int) error {
	return m.run(func(mg *migrate.Migrate) error {
		var err error
		if steps > 0 {
			err = mg.Steps(-steps)
		} else {
			err = mg.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("rolling back migrations: %w", err)
		}
		return nil
	})
}

// Version reports the current schema version.
func (m Migrator) Version() (uint, bool, error) {
	var version uint
	var dirty bool
	err := m.run(func(mg *migrate.Migrate) error {
		var err error
		version, dirty, err = mg.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

// Force sets the schema version without running migrations.
func (m Migrator) Force(version int) error {
	return m.run(func(mg *migrate.Migrate) error {
		if err := mg.Force(version); err != nil {
			return fmt.Errorf("forcing version: %w", err)
		}
		return nil
	})
}

func (m Migrator) run(fn func(*migrate.Migrate) error) error {
	db, err := sql.Open("postgres", m.URL)
	if err != nil {
		return fmt.Errorf("opening database connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("opening migration source: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	return fn(mg)
}
