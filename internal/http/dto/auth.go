// Package dto define los cuerpos de request/response de la API.
package dto

import "github.com/dropDatabas3/sbfportal/internal/domain/types"

// ---------- Auth ----------

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse nunca incluye tokens: el login solo deja la sesión
// pendiente de OTP.
type LoginResponse struct {
	Status string `json:"status"` // "otp_sent"
}

type VerifyOTPRequest struct {
	Code string `json:"code"`
}

// LogoutResponse confirma el cierre de sesión. La operación es idempotente:
// repetir el logout responde lo mismo.
type LogoutResponse struct {
	Status string `json:"status"` // "logged_out"
}

// TokenResponse es la respuesta de verify-otp y refresh. El refresh token
// no viaja en el cuerpo: va en cookie http-only.
type TokenResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"` // "Bearer"
	ExpiresIn   int64              `json:"expires_in"`
	User        *types.UserSummary `json:"user,omitempty"`
}

// MeResponse es el resumen del usuario autenticado.
type MeResponse struct {
	User *types.UserSummary `json:"user"`
}
