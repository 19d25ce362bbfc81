// Package pg implementa store.Repository sobre PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

type Store struct{ pool *pgxpool.Pool }

// Compile-time check: *Store satisface el contrato completo.
var _ store.Repository = (*Store)(nil)

// Config afina el pool. Los ceros usan los defaults de pgxpool.
type Config struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (migraciones, métricas).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// mapErr traduce errores del driver a los sentinels del contrato.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrConflict
	}
	return err
}

// ---------- Usuarios ----------

const userColumns = `u.id, u.name, u.email, u.password_hash, u.role_id, u.created_at, u.updated_at, u.disabled_at, r.id, r.name`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var roleID *int64
	var roleName *string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID,
		&u.CreatedAt, &u.UpdatedAt, &u.DisabledAt, &roleID, &roleName)
	if err != nil {
		return nil, mapErr(err)
	}
	if roleID != nil && roleName != nil {
		u.Role = &types.Role{ID: *roleID, Name: *roleName}
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *types.User) error {
	const q = `
INSERT INTO users (id, name, email, password_hash, role_id, created_at, updated_at)
VALUES ($1, $2, lower($3), $4, $5, NOW(), NOW())
RETURNING created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.RoleID).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
WHERE u.email = lower($1)`
	return scanUser(s.pool.QueryRow(ctx, q, email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
WHERE u.id = $1`
	return scanUser(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) ListUsers(ctx context.Context) ([]types.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
ORDER BY u.created_at`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *Store) SetUserRole(ctx context.Context, userID string, roleID int64) error {
	const q = `UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, userID, roleID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
