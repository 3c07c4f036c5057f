package db

import (
	"context"
	"errors"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser inserts the configured bootstrap account if it does not
// exist yet. With no ADMIN_EMAIL/ADMIN_PASSWORD configured this is a no-op.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		`,
		uuid.NewString(), cfg.AdminName, cfg.AdminEmail, hash,
	)

	return err
}
