package pg

import (
	"context"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

const refreshColumns = `id, user_id, token_hash, expires_at, revoked_at, created_at`

func (s *Store) CreateRefreshToken(ctx context.Context, t *types.RefreshToken) error {
	const q = `
INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
VALUES ($1, $2, $3, $4, NOW())
RETURNING created_at`
	err := s.pool.QueryRow(ctx, q, t.ID, t.UserID, t.TokenHash, t.ExpiresAt).
		Scan(&t.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*types.RefreshToken, error) {
	const q = `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	var t types.RefreshToken
	err := s.pool.QueryRow(ctx, q, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// RotateRefreshToken revoca el token viejo e inserta el reemplazo en una
// transacción. El UPDATE es condicional sobre revoked_at IS NULL: si afecta
// cero filas otra rotación ya ganó y toda la operación falla con ErrInvalid,
// sin emitir token nuevo.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, newToken *types.RefreshToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, oldID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrInvalid
	}

	const ins = `
INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
VALUES ($1, $2, $3, $4, NOW())
RETURNING created_at`
	if err := tx.QueryRow(ctx, ins, newToken.ID, newToken.UserID, newToken.TokenHash, newToken.ExpiresAt).
		Scan(&newToken.CreatedAt); err != nil {
		return mapErr(err)
	}
	return tx.Commit(ctx)
}

// RevokeRefreshToken es idempotente: revocar algo ya revocado no es error.
func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	_, err := s.pool.Exec(ctx, q, id)
	return mapErr(err)
}
