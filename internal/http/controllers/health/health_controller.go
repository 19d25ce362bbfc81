// Package health contiene el health check del portal.
package health

import (
	"net/http"

	"github.com/dropDatabas3/sbfportal/internal/cache"
	"github.com/dropDatabas3/sbfportal/internal/http/helpers"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

// Controller responde /healthz según el estado de las dependencias.
type Controller struct {
	repo  store.Repository
	cache cache.Client
}

func New(repo store.Repository, c cache.Client) *Controller {
	return &Controller{repo: repo, cache: c}
}

// Healthz maneja GET /healthz. 200 con ambos pings sanos, 503 si no.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := http.StatusOK
	body := map[string]string{"status": "ok", "store": "ok", "cache": "ok"}

	if err := c.repo.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["store"] = "down"
	}
	if err := c.cache.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["cache"] = "down"
	}

	helpers.WriteJSON(w, status, body)
}
