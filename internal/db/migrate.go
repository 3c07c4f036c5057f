package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geocoder89/userhub/internal/db/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies the embedded goose migrations. It opens its own
// database/sql handle (goose does not speak pgx pools) and closes it
// before returning.
func Migrate(ctx context.Context, dbURL string) error {
	conn, err := sql.Open("pgx", dbURL)

	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	defer conn.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
