// Package store define el contrato de persistencia del portal.
// Las implementaciones viven en subpaquetes (pg para producción,
// memory para desarrollo y tests).
package store

import (
	"context"
	"time"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
)

// Repository es el contrato único de persistencia. Los servicios dependen
// de esta interfaz, nunca de un driver concreto.
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// ------- Usuarios -------
	CreateUser(ctx context.Context, u *types.User) error
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	SetUserRole(ctx context.Context, userID string, roleID int64) error

	// ------- Roles y permisos -------
	ListRoles(ctx context.Context) ([]types.Role, error)
	GetRoleByID(ctx context.Context, id int64) (*types.Role, error)
	GetRoleByName(ctx context.Context, name string) (*types.Role, error)
	ListPermissions(ctx context.Context) ([]types.Permission, error)
	GetRolePermissionKeys(ctx context.Context, roleID int64) ([]string, error)
	GetUserPermissionKeys(ctx context.Context, userID string) ([]string, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, keys []string) ([]string, error)
	ReplaceUserPermissions(ctx context.Context, userID string, keys []string) ([]string, error)

	// ------- OTP -------
	CreateOtpToken(ctx context.Context, t *types.OtpToken) error
	LatestPendingOtp(ctx context.Context, userID string) (*types.OtpToken, error)
	ConsumeOtp(ctx context.Context, id int64, at time.Time) error

	// ------- Refresh tokens -------
	CreateRefreshToken(ctx context.Context, t *types.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*types.RefreshToken, error)
	// RotateRefreshToken revoca el token viejo e inserta el nuevo en una
	// misma transacción. La revocación es condicional (revoked_at IS NULL):
	// si otra rotación concurrente ganó la carrera devuelve ErrInvalid.
	RotateRefreshToken(ctx context.Context, oldID string, newToken *types.RefreshToken) error
	// RevokeRefreshToken marca el token como revocado. Idempotente: revocar
	// un token ya revocado no es error.
	RevokeRefreshToken(ctx context.Context, id string) error

	// ------- Workflow -------
	ListPoliciesByUser(ctx context.Context, userID string) ([]types.Policy, error)
	ListNextOfKinByUser(ctx context.Context, userID string) ([]types.NextOfKin, error)
	ListClaimsByUser(ctx context.Context, userID string) ([]types.Claim, error)
	CreateClaim(ctx context.Context, c *types.Claim) error
	CreatePayment(ctx context.Context, p *types.Payment) error
	ListPayments(ctx context.Context) ([]types.Payment, error)
	ListPurchaseOrders(ctx context.Context) ([]types.PurchaseOrder, error)
	ListProjects(ctx context.Context) ([]types.Project, error)
	ListProjectTasks(ctx context.Context, projectID int64) ([]types.ProjectTask, error)
	CountsSummary(ctx context.Context) (*types.Summary, error)

	// ------- Auditoría -------
	InsertAuditLog(ctx context.Context, l *types.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]types.AuditLog, error)
}
