// Package workflow expone la superficie de negocio del portal: pólizas,
// reclamos, beneficiarios, pagos y los listados administrativos. Es una capa
// deliberadamente fina sobre el store; la identidad del actor llega ya
// resuelta por el guard.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

// Errores del servicio de workflow.
var (
	ErrValidation = fmt.Errorf("workflow validation failed")
	ErrNotFound   = fmt.Errorf("workflow entity not found")
)

// ClaimInput es la entrada de un reclamo nuevo.
type ClaimInput struct {
	PolicyNo    string
	Type        string
	Description string
	Amount      float64
}

// PaymentInput es la entrada de un pago iniciado por un miembro.
type PaymentInput struct {
	Reference string
	Type      string
	Method    string
	Amount    float64
	InvoiceID *int64
}

// Service es el contrato del workflow. Las operaciones con actor reciben el
// id ya autenticado; la autorización ocurre antes, en el middleware.
type Service interface {
	// Superficie de miembro.
	PoliciesByUser(ctx context.Context, userID string) ([]types.Policy, error)
	BeneficiariesByUser(ctx context.Context, userID string) ([]types.NextOfKin, error)
	ClaimsByUser(ctx context.Context, userID string) ([]types.Claim, error)
	SubmitClaim(ctx context.Context, actorID string, in ClaimInput) (*types.Claim, error)
	InitiatePayment(ctx context.Context, actorID string, in PaymentInput) (*types.Payment, error)

	// Superficie administrativa.
	Summary(ctx context.Context) (*types.Summary, error)
	Payments(ctx context.Context) ([]types.Payment, error)
	PurchaseOrders(ctx context.Context) ([]types.PurchaseOrder, error)
	Projects(ctx context.Context) ([]types.Project, error)
	ProjectTasks(ctx context.Context, projectID int64) ([]types.ProjectTask, error)
	AuditLogs(ctx context.Context, limit int) ([]types.AuditLog, error)

	// RecordAction deja traza de una mutación ejecutada fuera de este
	// servicio (cambios de rol y de permisos del admin).
	RecordAction(ctx context.Context, actorID, action, entityType string, entityID int64, payload any)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Repo store.Repository
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	return &service{deps: deps}
}

func (s *service) PoliciesByUser(ctx context.Context, userID string) ([]types.Policy, error) {
	return s.deps.Repo.ListPoliciesByUser(ctx, userID)
}

func (s *service) BeneficiariesByUser(ctx context.Context, userID string) ([]types.NextOfKin, error) {
	return s.deps.Repo.ListNextOfKinByUser(ctx, userID)
}

func (s *service) ClaimsByUser(ctx context.Context, userID string) ([]types.Claim, error) {
	return s.deps.Repo.ListClaimsByUser(ctx, userID)
}

func (s *service) SubmitClaim(ctx context.Context, actorID string, in ClaimInput) (*types.Claim, error) {
	in.PolicyNo = strings.TrimSpace(in.PolicyNo)
	in.Type = strings.TrimSpace(in.Type)
	in.Description = strings.TrimSpace(in.Description)
	if in.PolicyNo == "" || in.Type == "" || in.Amount <= 0 {
		return nil, ErrValidation
	}

	c := &types.Claim{
		UserID:      actorID,
		PolicyNo:    in.PolicyNo,
		Type:        in.Type,
		Description: in.Description,
		Amount:      in.Amount,
		Status:      "Submitted",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.deps.Repo.CreateClaim(ctx, c); err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "claim.submit", "claim", c.ID, c)
	return c, nil
}

func (s *service) InitiatePayment(ctx context.Context, actorID string, in PaymentInput) (*types.Payment, error) {
	in.Reference = strings.TrimSpace(in.Reference)
	in.Method = strings.TrimSpace(in.Method)
	if in.Amount <= 0 {
		return nil, ErrValidation
	}
	if in.Reference == "" {
		// Referencia legible para conciliación manual.
		in.Reference = "PAY-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if in.Type == "" {
		in.Type = "Premium"
	}

	p := &types.Payment{
		Reference: in.Reference,
		Type:      in.Type,
		Method:    in.Method,
		Amount:    in.Amount,
		Status:    "Pending",
		InvoiceID: in.InvoiceID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.deps.Repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	s.audit(ctx, actorID, "payment.initiate", "payment", p.ID, p)
	return p, nil
}

func (s *service) Summary(ctx context.Context) (*types.Summary, error) {
	return s.deps.Repo.CountsSummary(ctx)
}

func (s *service) Payments(ctx context.Context) ([]types.Payment, error) {
	return s.deps.Repo.ListPayments(ctx)
}

func (s *service) PurchaseOrders(ctx context.Context) ([]types.PurchaseOrder, error) {
	return s.deps.Repo.ListPurchaseOrders(ctx)
}

func (s *service) Projects(ctx context.Context) ([]types.Project, error) {
	return s.deps.Repo.ListProjects(ctx)
}

func (s *service) ProjectTasks(ctx context.Context, projectID int64) ([]types.ProjectTask, error) {
	tasks, err := s.deps.Repo.ListProjectTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *service) AuditLogs(ctx context.Context, limit int) ([]types.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.deps.Repo.ListAuditLogs(ctx, limit)
}

func (s *service) RecordAction(ctx context.Context, actorID, action, entityType string, entityID int64, payload any) {
	s.audit(ctx, actorID, action, entityType, entityID, payload)
}

// audit registra la mutación con su actor. Best-effort: un fallo de auditoría
// no revierte la operación, solo se loguea.
func (s *service) audit(ctx context.Context, actorID, action, entityType string, entityID int64, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	l := &types.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    raw,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.deps.Repo.InsertAuditLog(ctx, l); err != nil {
		logger.From(ctx).With(
			logger.Layer("service"),
			logger.Component("workflow"),
			logger.Op("audit"),
		).Warn("audit insert failed", logger.Err(err))
	}
}
