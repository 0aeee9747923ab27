package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
)

// Migration sets, one per store. Versions do not overlap so both sets can
// share a database.
const (
	CredentialsMigrations = "migrations/credentials"
	ResourcesMigrations   = "migrations/resources"
)

//go:embed migrations
var migrations embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate opens dbURL through the pgx stdlib driver and applies the migration set in dir.
func Migrate(ctx context.Context, dbURL, dir string) error {
	const op = "storage.Migrate"

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db, dir); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func RunMigrations(ctx context.Context, db *sql.DB, dir string) error {
	const op = "storage.RunMigrations"

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := gooseUpContext(ctx, db, dir, goose.WithAllowMissing()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
