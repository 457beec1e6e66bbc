package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// DefaultMigrationsSource is where docqad looks for migrations, relative to its working directory.
const DefaultMigrationsSource = "file://migrations"

// MigrationStatus reports the schema version after Migrate.
type MigrationStatus struct {
	Version uint
	Applied bool
}

// Migrate applies every pending up migration from source.
func Migrate(databaseURL, source string, log *zap.Logger) (*MigrationStatus, error) {
	if source == "" {
		source = DefaultMigrationsSource
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	applied := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		applied = false
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("migrations: no migrations found")
		return &MigrationStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return nil, fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	if applied {
		log.Info("migrations: applied successfully", zap.Uint("version", version))
	} else {
		log.Info("migrations: database is up to date", zap.Uint("version", version))
	}
	return &MigrationStatus{Version: version, Applied: applied}, nil
}
