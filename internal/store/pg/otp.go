package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

func (s *Store) CreateOtpToken(ctx context.Context, t *types.OtpToken) error {
	const q = `
INSERT INTO otp_tokens (user_id, code, expires_at, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, t.UserID, t.Code, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt)
	return mapErr(err)
}

// LatestPendingOtp devuelve el código sin consumir más reciente del usuario.
// Los códigos anteriores quedan huérfanos: solo el último cuenta.
func (s *Store) LatestPendingOtp(ctx context.Context, userID string) (*types.OtpToken, error) {
	const q = `
SELECT id, user_id, code, expires_at, consumed_at, created_at
FROM otp_tokens
WHERE user_id = $1 AND consumed_at IS NULL
ORDER BY created_at DESC, id DESC
LIMIT 1`
	var t types.OtpToken
	err := s.pool.QueryRow(ctx, q, userID).
		Scan(&t.ID, &t.UserID, &t.Code, &t.ExpiresAt, &t.ConsumedAt, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// ConsumeOtp marca el código como usado. Consumir dos veces es ErrInvalid.
func (s *Store) ConsumeOtp(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE otp_tokens SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`
	ct, err := s.pool.Exec(ctx, q, id, at)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrInvalid
	}
	return nil
}
