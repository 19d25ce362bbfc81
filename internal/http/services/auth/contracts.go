// Package auth contiene los servicios del flujo de autenticación.
package auth

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/sbfportal/internal/http/dto"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
)

// TokenPair agrupa lo emitido tras autenticar: access JWT + refresh opaco.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Service define las operaciones de autenticación del portal.
type Service interface {
	// Register da de alta una cuenta con rol Member.
	Register(ctx context.Context, in dto.RegisterRequest) (*types.User, error)

	// Login valida credenciales y dispara el OTP. Nunca emite tokens:
	// devuelve el usuario para que el controller deje la sesión pendiente.
	Login(ctx context.Context, in dto.LoginRequest) (*types.User, error)

	// RequestOTP reemite un código para una sesión pendiente.
	RequestOTP(ctx context.Context, pendingUserID string) error

	// VerifyOTP consume el código y emite el par de tokens.
	VerifyOTP(ctx context.Context, pendingUserID, code string) (*TokenPair, *types.User, error)

	// Refresh rota el refresh token y devuelve el usuario dueño. El token
	// usado queda revocado; un segundo uso del mismo token falla.
	Refresh(ctx context.Context, rawToken string) (*TokenPair, *types.User, error)

	// Revoke invalida un refresh token. Idempotente.
	Revoke(ctx context.Context, rawToken string) error

	// Summary arma la vista del usuario con rol y permisos efectivos.
	Summary(ctx context.Context, user *types.User) (*types.UserSummary, error)
}

// Errores de los servicios de auth. Los controllers los mapean a AppError.
var (
	ErrMissingFields      = fmt.Errorf("missing required fields")
	ErrWeakPassword       = fmt.Errorf("password too weak")
	ErrEmailTaken         = fmt.Errorf("email already in use")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserDisabled       = fmt.Errorf("user disabled")
	ErrInvalidToken       = fmt.Errorf("invalid refresh token")
	ErrTokenExpired       = fmt.Errorf("refresh token expired")
)
