// Package metrics define los contadores Prometheus del portal en un
// paquete propio para evitar ciclos de import entre servicios y HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_login_attempts_total",
		Help: "Intentos de login por resultado (ok, invalid_credentials, rate_limited)",
	}, []string{"result"})

	OTPVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_otp_verifications_total",
		Help: "Verificaciones de OTP por resultado (ok, expired, mismatch, none)",
	}, []string{"result"})

	RefreshRotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_refresh_rotations_total",
		Help: "Rotaciones de refresh token por resultado (ok, reuse, invalid)",
	}, []string{"result"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "Requests HTTP por ruta y status",
	}, []string{"method", "path", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "Duración de requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Register registra todo en el registry dado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		LoginAttempts, OTPVerifications, RefreshRotations, HTTPRequests, HTTPDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
