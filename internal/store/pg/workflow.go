package pg

import (
	"context"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
)

// ---------- Pólizas y beneficiarios ----------

func (s *Store) ListPoliciesByUser(ctx context.Context, userID string) ([]types.Policy, error) {
	const q = `
SELECT id, policy_no, product, status, sum_assured, premium, period_from, period_to, user_id
FROM policies
WHERE user_id = $1
ORDER BY id`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Policy
	for rows.Next() {
		var p types.Policy
		if err := rows.Scan(&p.ID, &p.PolicyNo, &p.Product, &p.Status, &p.SumAssured,
			&p.Premium, &p.PeriodFrom, &p.PeriodTo, &p.UserID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListNextOfKinByUser(ctx context.Context, userID string) ([]types.NextOfKin, error) {
	const q = `
SELECT id, user_id, name, relationship, phone, created_at
FROM next_of_kin
WHERE user_id = $1
ORDER BY id`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.NextOfKin
	for rows.Next() {
		var n types.NextOfKin
		if err := rows.Scan(&n.ID, &n.UserID, &n.Name, &n.Relationship, &n.Phone, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ---------- Reclamos ----------

func (s *Store) ListClaimsByUser(ctx context.Context, userID string) ([]types.Claim, error) {
	const q = `
SELECT id, user_id, policy_no, type, description, amount, status, created_at
FROM claims
WHERE user_id = $1
ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Claim
	for rows.Next() {
		var c types.Claim
		if err := rows.Scan(&c.ID, &c.UserID, &c.PolicyNo, &c.Type, &c.Description,
			&c.Amount, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateClaim(ctx context.Context, c *types.Claim) error {
	const q = `
INSERT INTO claims (user_id, policy_no, type, description, amount, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, c.UserID, c.PolicyNo, c.Type, c.Description, c.Amount, c.Status).
		Scan(&c.ID, &c.CreatedAt)
	return mapErr(err)
}

// ---------- Pagos ----------

func (s *Store) CreatePayment(ctx context.Context, p *types.Payment) error {
	const q = `
INSERT INTO payments (reference, type, method, amount, status, invoice_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, p.Reference, p.Type, p.Method, p.Amount, p.Status, p.InvoiceID).
		Scan(&p.ID, &p.CreatedAt)
	return mapErr(err)
}

func (s *Store) ListPayments(ctx context.Context) ([]types.Payment, error) {
	const q = `
SELECT id, reference, type, method, amount, status, invoice_id, created_at
FROM payments
ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Payment
	for rows.Next() {
		var p types.Payment
		if err := rows.Scan(&p.ID, &p.Reference, &p.Type, &p.Method, &p.Amount,
			&p.Status, &p.InvoiceID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---------- Compras y proyectos ----------

func (s *Store) ListPurchaseOrders(ctx context.Context) ([]types.PurchaseOrder, error) {
	const q = `
SELECT id, po_number, vendor, project, status, total, created_at
FROM purchase_orders
ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.PurchaseOrder
	for rows.Next() {
		var po types.PurchaseOrder
		if err := rows.Scan(&po.ID, &po.PONumber, &po.Vendor, &po.Project,
			&po.Status, &po.Total, &po.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

func (s *Store) ListProjects(ctx context.Context) ([]types.Project, error) {
	const q = `
SELECT id, title, status, budget, start_date, end_date
FROM projects
ORDER BY id`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		var p types.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Status, &p.Budget, &p.StartDate, &p.EndDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListProjectTasks(ctx context.Context, projectID int64) ([]types.ProjectTask, error) {
	const q = `
SELECT id, project_id, description, percentage_weight, start_date, end_date, is_complete, assigned_to
FROM project_tasks
WHERE project_id = $1
ORDER BY id`
	rows, err := s.pool.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ProjectTask
	for rows.Next() {
		var t types.ProjectTask
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Description, &t.PercentageWeight,
			&t.StartDate, &t.EndDate, &t.IsComplete, &t.AssignedTo); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CountsSummary(ctx context.Context) (*types.Summary, error) {
	const q = `
SELECT
  (SELECT count(*) FROM users),
  (SELECT count(*) FROM payments),
  (SELECT count(*) FROM purchase_orders),
  (SELECT count(*) FROM projects)`
	var sum types.Summary
	err := s.pool.QueryRow(ctx, q).
		Scan(&sum.Users, &sum.Payments, &sum.PurchaseOrders, &sum.Projects)
	if err != nil {
		return nil, mapErr(err)
	}
	return &sum, nil
}

// ---------- Auditoría ----------

func (s *Store) InsertAuditLog(ctx context.Context, l *types.AuditLog) error {
	const q = `
INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, payload, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, l.ActorID, l.Action, l.EntityType, l.EntityID, l.Payload).
		Scan(&l.ID, &l.CreatedAt)
	return mapErr(err)
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]types.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, actor_id, action, entity_type, entity_id, payload, created_at
FROM audit_logs
ORDER BY created_at DESC
LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.AuditLog
	for rows.Next() {
		var l types.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.EntityType,
			&l.EntityID, &l.Payload, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
