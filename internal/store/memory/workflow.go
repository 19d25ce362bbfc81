package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
)

// ---------- Seed helpers (fixtures) ----------

func (s *Store) SeedPolicy(p types.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	s.policies = append(s.policies, &p)
}

func (s *Store) SeedNextOfKin(n types.NextOfKin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID()
	s.kin = append(s.kin, &n)
}

func (s *Store) SeedPurchaseOrder(po types.PurchaseOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po.ID = s.nextID()
	s.orders = append(s.orders, &po)
}

func (s *Store) SeedProject(p types.Project) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	s.projects = append(s.projects, &p)
	return p.ID
}

func (s *Store) SeedProjectTask(t types.ProjectTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID()
	s.tasks = append(s.tasks, &t)
}

// ---------- Lecturas ----------

func (s *Store) ListPoliciesByUser(_ context.Context, userID string) ([]types.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Policy
	for _, p := range s.policies {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) ListNextOfKinByUser(_ context.Context, userID string) ([]types.NextOfKin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.NextOfKin
	for _, n := range s.kin {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *Store) ListClaimsByUser(_ context.Context, userID string) ([]types.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Claim
	for _, c := range s.claims {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListPayments(_ context.Context) ([]types.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListPurchaseOrders(_ context.Context) ([]types.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.PurchaseOrder, 0, len(s.orders))
	for _, po := range s.orders {
		out = append(out, *po)
	}
	return out, nil
}

func (s *Store) ListProjects(_ context.Context) ([]types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (s *Store) ListProjectTasks(_ context.Context, projectID int64) ([]types.ProjectTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.ProjectTask
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *Store) CountsSummary(_ context.Context) (*types.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &types.Summary{
		Users:          int64(len(s.users)),
		Payments:       int64(len(s.payments)),
		PurchaseOrders: int64(len(s.orders)),
		Projects:       int64(len(s.projects)),
	}, nil
}

// ---------- Escrituras ----------

func (s *Store) CreateClaim(_ context.Context, c *types.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID()
	c.CreatedAt = time.Now()
	cp := *c
	s.claims = append(s.claims, &cp)
	return nil
}

func (s *Store) CreatePayment(_ context.Context, p *types.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	p.CreatedAt = time.Now()
	cp := *p
	s.payments = append(s.payments, &cp)
	return nil
}

// ---------- Auditoría ----------

func (s *Store) InsertAuditLog(_ context.Context, l *types.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextID()
	l.CreatedAt = time.Now()
	cp := *l
	s.audits = append(s.audits, &cp)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]types.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]types.AuditLog, 0, len(s.audits))
	for i := len(s.audits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.audits[i])
	}
	return out, nil
}
