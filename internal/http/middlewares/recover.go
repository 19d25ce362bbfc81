package middlewares

import (
	"net/http"

	httperrors "github.com/dropDatabas3/sbfportal/internal/http/errors"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
)

// WithRecover convierte panics en 500 y deja el stack en el log en lugar
// de tirar la conexión.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Any("panic", rec),
						logger.Path(r.URL.Path),
					)
					httperrors.WriteError(w, httperrors.ErrInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
