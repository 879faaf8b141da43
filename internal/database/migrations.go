package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrations lists the goose migrations found at the root of fsys, ordered by
// version.
func Migrations(fsys fs.FS) (goose.Migrations, error) {
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	found, err := goose.CollectMigrations(".", 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to collect migrations: %w", err)
	}
	return found, nil
}

// RunMigrations applies every pending migration embedded in fsys.
func RunMigrations(db *sql.DB, fsys fs.FS, logger *zap.Logger) error {
	found, err := Migrations(fsys)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("no migrations found")
	}
	last := found[len(found)-1]
	logger.Info("Checking for pending migrations...",
		zap.Int("available", len(found)),
		zap.String("latest", path.Base(last.Source)),
	)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.Up(db, "."); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations completed successfully", zap.Int64("version", last.Version))
	return nil
}

// GetMigrationStatus prints the status of every migration in fsys.
func GetMigrationStatus(db *sql.DB, fsys fs.FS) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	return goose.Status(db, ".")
}
