// Package member contiene los controllers de la superficie de miembro:
// pólizas, beneficiarios, reclamos y pagos. Todos corren detrás del guard.
package member

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/sbfportal/internal/http/dto"
	httperrors "github.com/dropDatabas3/sbfportal/internal/http/errors"
	"github.com/dropDatabas3/sbfportal/internal/http/helpers"
	"github.com/dropDatabas3/sbfportal/internal/http/middlewares"
	wf "github.com/dropDatabas3/sbfportal/internal/http/services/workflow"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
)

// Controller maneja los endpoints de miembro bajo /api.
type Controller struct {
	workflow wf.Service
}

func New(workflow wf.Service) *Controller {
	return &Controller{workflow: workflow}
}

// Policies maneja GET /api/policies.
func (c *Controller) Policies(w http.ResponseWriter, r *http.Request) {
	actor := middlewares.GetActor(r.Context())
	if actor == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	list, err := c.workflow.PoliciesByUser(r.Context(), actor.User.ID)
	if err != nil {
		c.writeError(r, w, "Policies", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"policies": list})
}

// Beneficiaries maneja GET /api/beneficiaries.
func (c *Controller) Beneficiaries(w http.ResponseWriter, r *http.Request) {
	actor := middlewares.GetActor(r.Context())
	if actor == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	list, err := c.workflow.BeneficiariesByUser(r.Context(), actor.User.ID)
	if err != nil {
		c.writeError(r, w, "Beneficiaries", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"beneficiaries": list})
}

// Claims maneja GET /api/claims.
func (c *Controller) Claims(w http.ResponseWriter, r *http.Request) {
	actor := middlewares.GetActor(r.Context())
	if actor == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	list, err := c.workflow.ClaimsByUser(r.Context(), actor.User.ID)
	if err != nil {
		c.writeError(r, w, "Claims", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"claims": list})
}

// SubmitClaim maneja POST /api/claims.
func (c *Controller) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	actor := middlewares.GetActor(r.Context())
	if actor == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	var req dto.CreateClaimRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	claim, err := c.workflow.SubmitClaim(r.Context(), actor.User.ID, wf.ClaimInput{
		PolicyNo:    req.PolicyNo,
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
	})
	if err != nil {
		c.writeError(r, w, "SubmitClaim", err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, claim)
}

// InitiatePayment maneja POST /api/payments/initiate.
func (c *Controller) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	actor := middlewares.GetActor(r.Context())
	if actor == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	var req dto.InitiatePaymentRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	p, err := c.workflow.InitiatePayment(r.Context(), actor.User.ID, wf.PaymentInput{
		Type:   req.Type,
		Method: req.Method,
		Amount: req.Amount,
	})
	if err != nil {
		c.writeError(r, w, "InitiatePayment", err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.InitiatePaymentResponse{
		Reference: p.Reference,
		Status:    p.Status,
	})
}

func (c *Controller) writeError(r *http.Request, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, wf.ErrValidation):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, wf.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	default:
		logger.From(r.Context()).Error("member endpoint failed",
			logger.Layer("controller"), logger.Op("Member."+op), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
