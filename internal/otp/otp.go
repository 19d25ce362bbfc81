// Package otp implementa el segundo paso del login: códigos numéricos de
// un solo uso enviados por correo.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/email"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	"github.com/dropDatabas3/sbfportal/internal/security/token"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

var (
	ErrNoPending      = errors.New("no pending code")
	ErrCodeExpired    = errors.New("code expired")
	ErrCodeMismatch   = errors.New("code mismatch")
	ErrDeliveryFailed = errors.New("code delivery failed")
)

// Manager emite y verifica códigos OTP.
type Manager struct {
	repo   store.Repository
	sender email.Sender
	ttl    time.Duration
}

func NewManager(repo store.Repository, sender email.Sender, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Manager{repo: repo, sender: sender, ttl: ttl}
}

// generateCode produce 6 dígitos decimales con padding de ceros.
// "004217" es un código válido.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue persiste un código nuevo y recién después intenta enviarlo.
// Si el envío falla la fila queda igual: el usuario puede pedir reenvío y
// el código anterior simplemente deja de ser el más reciente.
func (m *Manager) Issue(ctx context.Context, user *types.User) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	t := &types.OtpToken{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.repo.CreateOtpToken(ctx, t); err != nil {
		return err
	}

	minutes := int(m.ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	subject, html, text := email.OTPBodies(user.Name, code, minutes)
	if err := m.sender.Send(user.Email, subject, html, text); err != nil {
		logger.From(ctx).Error("otp delivery failed",
			logger.Component("otp"),
			logger.UserID(user.ID),
			logger.Err(err),
		)
		return ErrDeliveryFailed
	}
	return nil
}

// Verify valida el código más reciente sin consumir del usuario.
// La comparación es en tiempo constante y el consumo es terminal: un
// código usado o vencido nunca vuelve a aceptar.
func (m *Manager) Verify(ctx context.Context, userID, code string) error {
	t, err := m.repo.LatestPendingOtp(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoPending
		}
		return err
	}
	if time.Now().After(t.ExpiresAt) {
		return ErrCodeExpired
	}
	if !token.ConstantTimeEquals(t.Code, code) {
		return ErrCodeMismatch
	}
	if err := m.repo.ConsumeOtp(ctx, t.ID, time.Now()); err != nil {
		if errors.Is(err, store.ErrInvalid) {
			// Verificación concurrente ya lo consumió.
			return ErrNoPending
		}
		return err
	}
	return nil
}
