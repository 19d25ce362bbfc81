// Package admin contiene los controllers administrativos. Todas las rutas
// corren detrás de RequireAuth + RequirePermission.
package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	dto "github.com/dropDatabas3/sbfportal/internal/http/dto"
	httperrors "github.com/dropDatabas3/sbfportal/internal/http/errors"
	"github.com/dropDatabas3/sbfportal/internal/http/helpers"
	"github.com/dropDatabas3/sbfportal/internal/http/middlewares"
	wf "github.com/dropDatabas3/sbfportal/internal/http/services/workflow"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	"github.com/dropDatabas3/sbfportal/internal/store"
	"github.com/dropDatabas3/sbfportal/internal/validation"
)

// Controller maneja /api/admin.
type Controller struct {
	repo     store.Repository
	workflow wf.Service
	resolver *acl.Resolver
}

type Deps struct {
	Repo     store.Repository
	Workflow wf.Service
	Resolver *acl.Resolver
}

func New(deps Deps) *Controller {
	return &Controller{repo: deps.Repo, workflow: deps.Workflow, resolver: deps.Resolver}
}

// Summary maneja GET /api/admin/summary.
func (c *Controller) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := c.workflow.Summary(r.Context())
	if err != nil {
		c.internal(r, w, "Summary", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, s)
}

// Permissions maneja GET /api/admin/permissions: el catálogo completo.
func (c *Controller) Permissions(w http.ResponseWriter, r *http.Request) {
	perms, err := c.repo.ListPermissions(r.Context())
	if err != nil {
		c.internal(r, w, "Permissions", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

// Roles maneja GET /api/admin/roles.
func (c *Controller) Roles(w http.ResponseWriter, r *http.Request) {
	roles, err := c.repo.ListRoles(r.Context())
	if err != nil {
		c.internal(r, w, "Roles", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// Users maneja GET /api/admin/users.
func (c *Controller) Users(w http.ResponseWriter, r *http.Request) {
	users, err := c.repo.ListUsers(r.Context())
	if err != nil {
		c.internal(r, w, "Users", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// Payments maneja GET /api/admin/payments.
func (c *Controller) Payments(w http.ResponseWriter, r *http.Request) {
	list, err := c.workflow.Payments(r.Context())
	if err != nil {
		c.internal(r, w, "Payments", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"payments": list})
}

// PurchaseOrders maneja GET /api/admin/pos.
func (c *Controller) PurchaseOrders(w http.ResponseWriter, r *http.Request) {
	list, err := c.workflow.PurchaseOrders(r.Context())
	if err != nil {
		c.internal(r, w, "PurchaseOrders", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"purchase_orders": list})
}

// Projects maneja GET /api/admin/projects.
func (c *Controller) Projects(w http.ResponseWriter, r *http.Request) {
	list, err := c.workflow.Projects(r.Context())
	if err != nil {
		c.internal(r, w, "Projects", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"projects": list})
}

// ProjectTasks maneja GET /api/admin/projects/{id}/tasks.
func (c *Controller) ProjectTasks(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid project id"))
		return
	}
	tasks, err := c.workflow.ProjectTasks(r.Context(), id)
	if err != nil {
		c.internal(r, w, "ProjectTasks", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// AuditLogs maneja GET /api/admin/audit.
func (c *Controller) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := c.workflow.AuditLogs(r.Context(), limit)
	if err != nil {
		c.internal(r, w, "AuditLogs", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

// SetUserRole maneja POST /api/admin/users/{id}/role.
func (c *Controller) SetUserRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req dto.SetRoleRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	if _, err := c.repo.GetRoleByID(r.Context(), req.RoleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("unknown role"))
			return
		}
		c.internal(r, w, "SetUserRole", err)
		return
	}

	if err := c.repo.SetUserRole(r.Context(), userID, req.RoleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperrors.WriteError(w, httperrors.ErrUserNotFound)
			return
		}
		c.internal(r, w, "SetUserRole", err)
		return
	}

	c.recordMutation(r, "user.set_role", "user", 0, map[string]any{
		"user_id": userID,
		"role_id": req.RoleID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceRolePermissions maneja PUT /api/admin/roles/{id}/permissions.
// Las claves fuera del catálogo se descartan; responde lo que quedó escrito.
func (c *Controller) ReplaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid role id"))
		return
	}
	var req dto.ReplacePermissionsRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	written, err := c.repo.ReplaceRolePermissions(r.Context(), roleID, validation.FilterPermissionKeys(req.Permissions))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("role not found"))
			return
		}
		c.internal(r, w, "ReplaceRolePermissions", err)
		return
	}

	c.resolver.Invalidate(r.Context())
	c.recordMutation(r, "role.replace_permissions", "role", roleID, map[string]any{
		"permissions": written,
	})
	helpers.WriteJSON(w, http.StatusOK, dto.ReplacePermissionsResponse{Permissions: written})
}

// ReplaceUserPermissions maneja PUT /api/admin/users/{id}/permissions.
func (c *Controller) ReplaceUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req dto.ReplacePermissionsRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	written, err := c.repo.ReplaceUserPermissions(r.Context(), userID, validation.FilterPermissionKeys(req.Permissions))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperrors.WriteError(w, httperrors.ErrUserNotFound)
			return
		}
		c.internal(r, w, "ReplaceUserPermissions", err)
		return
	}

	c.resolver.Invalidate(r.Context())
	c.recordMutation(r, "user.replace_permissions", "user", 0, map[string]any{
		"user_id":     userID,
		"permissions": written,
	})
	helpers.WriteJSON(w, http.StatusOK, dto.ReplacePermissionsResponse{Permissions: written})
}

func (c *Controller) recordMutation(r *http.Request, action, entityType string, entityID int64, payload any) {
	actor := middlewares.GetActor(r.Context())
	if actor == nil {
		return
	}
	c.workflow.RecordAction(r.Context(), actor.User.ID, action, entityType, entityID, payload)
}

func (c *Controller) internal(r *http.Request, w http.ResponseWriter, op string, err error) {
	logger.From(r.Context()).Error("admin endpoint failed",
		logger.Layer("controller"), logger.Op("Admin."+op), logger.Err(err))
	httperrors.WriteError(w, httperrors.ErrInternalServerError)
}
