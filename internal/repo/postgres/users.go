package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmailTaken = errors.New("email already exists")

const userColumns = `id, name, email, status, registration_time, last_login_time, last_activity_time, updated_at`

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, metrics *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool:    pool,
		metrics: metrics,
	}
}

// Create inserts a new active user. Email uniqueness is the unique index's
// job: a concurrent duplicate surfaces here as ErrEmailTaken, never as a
// check-then-insert race.
func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB("users.create", func() error {
		return r.pool.QueryRow(
			ctx,
			`INSERT INTO users (id, name, email, password_hash)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+userColumns,
			uuid.NewString(), name, email, passwordHash,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.Status,
			&u.RegistrationTime,
			&u.LastLoginTime,
			&u.LastActivityTime,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_email", `email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if uuid.Validate(id) != nil {
		return user.User{}, user.ErrNotFound
	}

	return r.getBy(ctx, "users.get_by_id", `id = $1`, id)
}

func (r *UsersRepo) getBy(ctx context.Context, op, cond string, arg any) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB(op, func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, email, password_hash, status, registration_time, last_login_time, last_activity_time, updated_at
			 FROM users
			 WHERE `+cond,
			arg,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.Status,
			&u.RegistrationTime,
			&u.LastLoginTime,
			&u.LastActivityTime,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// List returns users matching the filter in the resolved sort order.
func (r *UsersRepo) List(ctx context.Context, f user.ListFilter) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+f.Search+"%")
		argsPosition++
	}

	if f.Status != "" && f.Status != "all" {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, f.Status)
		argsPosition++
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY " + resolveSort(f.SortBy, f.SortOrder)

	var out []user.User

	err := r.metrics.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.User, 0)

		for rows.Next() {
			var u user.User

			err = rows.Scan(
				&u.ID,
				&u.Name,
				&u.Email,
				&u.Status,
				&u.RegistrationTime,
				&u.LastLoginTime,
				&u.LastActivityTime,
				&u.UpdatedAt,
			)

			if err != nil {
				return err
			}

			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// SetStatus flips every listed user to the given status in one statement.
// Ids that match nothing simply produce no row; re-applying a status a user
// already has succeeds trivially.
func (r *UsersRepo) SetStatus(ctx context.Context, ids []string, status user.Status) ([]user.User, error) {
	var out []user.User

	err := r.metrics.ObserveDB("users.set_status", func() error {
		rows, err := r.pool.Query(
			ctx,
			`UPDATE users
			 SET status = $1, updated_at = now()
			 WHERE id = ANY($2::uuid[])
			 RETURNING `+userColumns,
			status, validIDs(ids),
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.User, 0, len(ids))

		for rows.Next() {
			var u user.User

			err = rows.Scan(
				&u.ID,
				&u.Name,
				&u.Email,
				&u.Status,
				&u.RegistrationTime,
				&u.LastLoginTime,
				&u.LastActivityTime,
				&u.UpdatedAt,
			)

			if err != nil {
				return err
			}

			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Delete permanently removes the listed users in one statement and returns
// what was actually removed. No soft delete, no tombstones.
func (r *UsersRepo) Delete(ctx context.Context, ids []string) ([]user.DeletedUser, error) {
	var out []user.DeletedUser

	err := r.metrics.ObserveDB("users.delete", func() error {
		rows, err := r.pool.Query(
			ctx,
			`DELETE FROM users
			 WHERE id = ANY($1::uuid[])
			 RETURNING id, name, email`,
			validIDs(ids),
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.DeletedUser, 0, len(ids))

		for rows.Next() {
			var d user.DeletedUser

			if err := rows.Scan(&d.ID, &d.Name, &d.Email); err != nil {
				return err
			}

			out = append(out, d)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) TouchLastLogin(ctx context.Context, id string) error {
	return r.metrics.ObserveDB("users.touch_last_login", func() error {
		_, err := r.pool.Exec(
			ctx,
			`UPDATE users SET last_login_time = now(), last_activity_time = now() WHERE id = $1`,
			id,
		)
		return err
	})
}

func (r *UsersRepo) TouchLastActivity(ctx context.Context, id string) error {
	return r.metrics.ObserveDB("users.touch_last_activity", func() error {
		_, err := r.pool.Exec(
			ctx,
			`UPDATE users SET last_activity_time = now() WHERE id = $1`,
			id,
		)
		return err
	})
}

var sortColumns = map[string]bool{
	"name":               true,
	"email":              true,
	"registration_time":  true,
	"last_login_time":    true,
	"last_activity_time": true,
}

// resolveSort maps the two sort parameters onto an ORDER BY clause. An
// unknown value in either parameter discards both and falls back to the
// default sort, matching the query contract exactly: a bogus sortOrder
// drags a perfectly valid sortBy down with it.
func resolveSort(sortBy, sortOrder string) string {
	order := strings.ToLower(sortOrder)

	if sortColumns[sortBy] && (order == "asc" || order == "desc") {
		return sortBy + " " + strings.ToUpper(order)
	}

	return "last_login_time DESC"
}

// validIDs drops anything that cannot be a uuid so a malformed id behaves
// like a nonexistent one instead of failing the whole batch in the cast.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if uuid.Validate(id) == nil {
			out = append(out, id)
		}
	}

	return out
}
