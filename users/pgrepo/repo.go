// Package pgrepo stores console users in the admin_users Postgres table.
package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jrsteele09/go-content-admin/users"
)

var _ users.Repo = (*UserRepo)(nil)

// Schema creates the table used by UserRepo
const Schema = `CREATE TABLE IF NOT EXISTS admin_users (
	id uuid PRIMARY KEY,
	email text NOT NULL UNIQUE,
	password_hash text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	last_login timestamptz,
	blocked boolean NOT NULL DEFAULT false,
	password_change_required boolean NOT NULL DEFAULT false
)`

const userColumns = `id::text, email, password_hash, created_at, COALESCE(last_login, 'epoch'::timestamptz), blocked, password_change_required`

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepo struct {
	db DB
}

func New(db DB) *UserRepo {
	return &UserRepo{db: db}
}

// Migrate creates admin_users when missing
func (r *UserRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create admin_users: %w", err)
	}
	return nil
}

func (r *UserRepo) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = users.NormalizeEmail(user.Email)

	var lastLogin any
	if !user.LastLogin.IsZero() {
		lastLogin = user.LastLogin
	}

	_, err := r.db.Exec(ctx, `INSERT INTO admin_users (id, email, password_hash, last_login, blocked, password_change_required)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
last_login = EXCLUDED.last_login, blocked = EXCLUDED.blocked, password_change_required = EXCLUDED.password_change_required`,
		user.ID, user.Email, user.PasswordHash, lastLogin, user.Blocked, user.PasswordChangeRequired)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM admin_users WHERE email = $1`, users.NormalizeEmail(email))
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM admin_users WHERE id = $1`, id)
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM admin_users ORDER BY email OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	list := make([]*users.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *UserRepo) getOne(ctx context.Context, sql string, arg any) (*users.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	u := &users.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastLogin, &u.Blocked, &u.PasswordChangeRequired); err != nil {
		return nil, err
	}
	if u.LastLogin.Unix() == 0 {
		u.LastLogin = time.Time{} // never signed in
	}
	return u, nil
}
