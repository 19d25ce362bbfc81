// Package router arma el árbol de rutas del portal sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	admctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/admin"
	authctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/auth"
	memctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/member"
	socctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/social"
	httperrors "github.com/dropDatabas3/sbfportal/internal/http/errors"
	mw "github.com/dropDatabas3/sbfportal/internal/http/middlewares"
	"github.com/dropDatabas3/sbfportal/internal/rate"
)

// Deps reúne todo lo que el router necesita para montar la API.
type Deps struct {
	Auth   *authctrl.Controller
	Social *socctrl.Controller
	Member *memctrl.Controller
	Admin  *admctrl.Controller

	Guard    mw.GuardDeps
	Resolver *acl.Resolver

	// Limiters por endpoint sensible. NoopLimiter si el rate está apagado.
	LoginLimiter rate.Limiter
	OTPLimiter   rate.Limiter

	CORSOrigins []string

	// Healthz responde 200/503 según las dependencias.
	Healthz http.HandlerFunc
}

// New construye el handler raíz: /api con la cadena completa de
// middlewares, más /healthz y /metrics pelados.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// El orden importa: request-id primero para que el logging ya lo
	// tenga, recover después del logging para que el panic quede logueado
	// con el request en contexto.
	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())
	r.Use(mw.WithMetrics())
	r.Use(mw.WithRecover())
	r.Use(mw.WithCORS(deps.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if deps.Healthz != nil {
		r.Get("/healthz", deps.Healthz)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	requireAuth := mw.RequireAuth(deps.Guard)
	perm := func(key string) func(http.Handler) http.Handler {
		return mw.RequirePermission(deps.Resolver, key)
	}

	r.Route("/api", func(api chi.Router) {
		// ---- Auth público ----
		api.Route("/auth", func(a chi.Router) {
			a.Post("/register", deps.Auth.Register)
			a.With(mw.WithRateLimit(deps.LoginLimiter, "login")).
				Post("/login", deps.Auth.Login)
			a.With(mw.WithRateLimit(deps.OTPLimiter, "otp")).
				Post("/request-otp", deps.Auth.RequestOTP)
			a.With(mw.WithRateLimit(deps.OTPLimiter, "otp")).
				Post("/verify-otp", deps.Auth.VerifyOTP)
			a.Post("/refresh", deps.Auth.Refresh)
			a.Post("/logout", deps.Auth.Logout)

			a.Get("/google/start", deps.Social.Start)
			a.Get("/google/callback", deps.Social.Callback)
		})

		// ---- Superficie de miembro (autenticado) ----
		api.Group(func(g chi.Router) {
			g.Use(requireAuth)
			g.Get("/me", deps.Auth.Me)
			g.Get("/policies", deps.Member.Policies)
			g.Get("/beneficiaries", deps.Member.Beneficiaries)
			g.Get("/claims", deps.Member.Claims)
			g.Post("/claims", deps.Member.SubmitClaim)
			g.Post("/payments/initiate", deps.Member.InitiatePayment)
		})

		// ---- Admin (autenticado + permiso por ruta) ----
		api.Route("/admin", func(ad chi.Router) {
			ad.Use(requireAuth)
			ad.With(perm(acl.PermAdminAccess)).Get("/summary", deps.Admin.Summary)
			ad.With(perm(acl.PermRolesView)).Get("/permissions", deps.Admin.Permissions)
			ad.With(perm(acl.PermRolesView)).Get("/roles", deps.Admin.Roles)
			ad.With(perm(acl.PermRolesManage)).Put("/roles/{id}/permissions", deps.Admin.ReplaceRolePermissions)
			ad.With(perm(acl.PermUsersView)).Get("/users", deps.Admin.Users)
			ad.With(perm(acl.PermUsersManage)).Post("/users/{id}/role", deps.Admin.SetUserRole)
			ad.With(perm(acl.PermUsersManage)).Put("/users/{id}/permissions", deps.Admin.ReplaceUserPermissions)
			ad.With(perm(acl.PermPaymentsView)).Get("/payments", deps.Admin.Payments)
			ad.With(perm(acl.PermPOsView)).Get("/pos", deps.Admin.PurchaseOrders)
			ad.With(perm(acl.PermProjectsView)).Get("/projects", deps.Admin.Projects)
			ad.With(perm(acl.PermProjectsView)).Get("/projects/{id}/tasks", deps.Admin.ProjectTasks)
			ad.With(perm(acl.PermAdminAccess)).Get("/audit", deps.Admin.AuditLogs)
		})
	})

	return r
}
