package config

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationSource returns the embedded SQL migrations as a golang-migrate source.
func MigrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return src, nil
}

// MigrateDatabase brings the schema up to date.
//
// Postgres applies the embedded SQL migrations through golang-migrate so the
// schema is versioned. SQLite has no versioned history and is migrated with
// GORM AutoMigrate from models.
func MigrateDatabase(db *gorm.DB, driver string, logger *slog.Logger, models ...any) error {
	if db == nil {
		return errors.New("database is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch driver {
	case "postgres":
		version, err := migratePostgres(db)
		if err != nil {
			return err
		}
		logger.Info("database migrated", slog.String("driver", driver), slog.Uint64("version", uint64(version)))
		return nil
	case "sqlite":
		if err := db.AutoMigrate(models...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("auto migration completed", slog.String("driver", driver))
		return nil
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func migratePostgres(db *gorm.DB) (uint, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	src, err := MigrationSource()
	if err != nil {
		return 0, err
	}

	target, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return 0, fmt.Errorf("open migration target: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migration version %d is dirty", version)
	}
	return version, nil
}
