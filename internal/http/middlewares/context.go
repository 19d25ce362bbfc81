package middlewares

import (
	"context"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
)

type ctxKey string

const (
	ctxActorKey     ctxKey = "actor"
	ctxRequestIDKey ctxKey = "request_id"
)

// Actor es la identidad resuelta por el guard de autenticación.
// Source indica por qué vía entró: "session" o "bearer".
type Actor struct {
	User      *types.User
	SessionID string
	Source    string
}

// WithActor inyecta el actor autenticado en el contexto.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, ctxActorKey, a)
}

// GetActor devuelve el actor o nil si la request no está autenticada.
func GetActor(ctx context.Context) *Actor {
	if v := ctx.Value(ctxActorKey); v != nil {
		if a, ok := v.(*Actor); ok {
			return a
		}
	}
	return nil
}

// MustGetActor devuelve el actor o hace panic. Usar solo detrás de
// RequireAuth.
func MustGetActor(ctx context.Context) *Actor {
	a := GetActor(ctx)
	if a == nil {
		panic("middlewares: no actor in context")
	}
	return a
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID devuelve el request ID o cadena vacía.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
