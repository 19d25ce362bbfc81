package middlewares

import (
	"net/http"
	"strconv"

	httperrors "github.com/dropDatabas3/sbfportal/internal/http/errors"
	"github.com/dropDatabas3/sbfportal/internal/http/helpers"
	"github.com/dropDatabas3/sbfportal/internal/metrics"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	"github.com/dropDatabas3/sbfportal/internal/rate"
)

// WithRateLimit limita por IP de cliente con el limiter dado. Si el
// backend del limiter falla se deja pasar: preferimos degradar a abrir
// la puerta antes que tirar el login por un Redis caído.
func WithRateLimit(limiter rate.Limiter, name string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + helpers.ClientIP(r)
			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
				if secs := int(res.RetryAfter.Seconds()); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
