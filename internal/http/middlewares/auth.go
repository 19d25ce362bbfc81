package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	httperrors "github.com/dropDatabas3/sbfportal/internal/http/errors"
	jwtx "github.com/dropDatabas3/sbfportal/internal/jwt"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	"github.com/dropDatabas3/sbfportal/internal/session"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

// GuardDeps reúne lo que el guard necesita para resolver identidad.
type GuardDeps struct {
	Sessions      *session.Manager
	SessionCookie string
	Issuer        *jwtx.Issuer
	Repo          store.Repository
}

// RequireAuth resuelve la identidad en orden fijo: primero la cookie de
// sesión, después Authorization: Bearer. Una sesión pendiente de OTP no
// autentica. El usuario se recarga del repositorio en cada request, así
// una cuenta deshabilitada corta de inmediato aunque su JWT siga vivo.
func RequireAuth(deps GuardDeps) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// 1) Sesión server-side
			if c, err := r.Cookie(deps.SessionCookie); err == nil && c.Value != "" {
				data, err := deps.Sessions.Get(ctx, c.Value)
				if err == nil && data.Authenticated() {
					u, err := deps.Repo.GetUserByID(ctx, data.UserID)
					if err == nil && u.DisabledAt == nil {
						actor := &Actor{User: u, SessionID: c.Value, Source: "session"}
						next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
						return
					}
					if err != nil && !errors.Is(err, store.ErrNotFound) {
						logger.From(ctx).Error("auth guard user lookup failed", logger.Err(err))
						httperrors.WriteError(w, httperrors.ErrInternalServerError)
						return
					}
					// Usuario borrado o deshabilitado: la sesión ya no vale.
					httperrors.WriteError(w, httperrors.ErrSessionExpired)
					return
				}
				// Cookie presente pero sesión inválida: probar Bearer igual.
			}

			// 2) Bearer JWT
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := deps.Issuer.VerifyAccess(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				httperrors.WriteError(w, httperrors.ErrInvalidToken)
				return
			}

			u, err := deps.Repo.GetUserByID(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					httperrors.WriteError(w, httperrors.ErrInvalidToken)
					return
				}
				logger.From(ctx).Error("auth guard user lookup failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrInternalServerError)
				return
			}
			if u.DisabledAt != nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}

			actor := &Actor{User: u, Source: "bearer"}
			next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
		})
	}
}

// RequirePermission autoriza contra el resolver. Debe ir detrás de
// RequireAuth. Claves fuera del catálogo niegan siempre.
func RequirePermission(resolver *acl.Resolver, key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := GetActor(r.Context())
			if actor == nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			ok, err := resolver.Has(r.Context(), actor.User, key)
			if err != nil {
				logger.From(r.Context()).Error("permission check failed",
					logger.Permission(key), logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrInternalServerError)
				return
			}
			if !ok {
				httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("missing permission: "+key))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
