package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/store/memory"
)

func newTestService() (*memory.Store, Service) {
	repo := memory.New()
	return repo, NewService(Deps{Repo: repo})
}

func TestPoliciesByUser(t *testing.T) {
	repo, svc := newTestService()
	ctx := context.Background()

	repo.SeedPolicy(types.Policy{UserID: "u1", PolicyNo: "026/CEA/125078", Product: "Last Expense", Status: "Active"})
	repo.SeedPolicy(types.Policy{UserID: "u2", PolicyNo: "026/CEA/134514", Product: "Last Expense", Status: "Active"})

	got, err := svc.PoliciesByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "026/CEA/125078", got[0].PolicyNo)

	got, err = svc.PoliciesByUser(ctx, "u3")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSubmitClaim(t *testing.T) {
	repo, svc := newTestService()
	ctx := context.Background()

	c, err := svc.SubmitClaim(ctx, "u1", ClaimInput{
		PolicyNo:    " 026/CEA/125078 ",
		Type:        "Last Expense",
		Description: "funeral cover",
		Amount:      50000,
	})
	require.NoError(t, err)
	require.NotZero(t, c.ID)
	require.Equal(t, "Submitted", c.Status)
	require.Equal(t, "026/CEA/125078", c.PolicyNo)

	mine, err := svc.ClaimsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	// La mutación deja rastro en la auditoría.
	logs, err := repo.ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "u1", logs[0].ActorID)
	require.Equal(t, "claim.submit", logs[0].Action)
	require.Equal(t, "claim", logs[0].EntityType)
	require.Equal(t, c.ID, logs[0].EntityID)

	var payload types.Claim
	require.NoError(t, json.Unmarshal(logs[0].Payload, &payload))
	require.Equal(t, c.PolicyNo, payload.PolicyNo)
}

func TestSubmitClaimValidation(t *testing.T) {
	_, svc := newTestService()
	ctx := context.Background()

	cases := []ClaimInput{
		{Type: "Last Expense", Amount: 100},             // sin póliza
		{PolicyNo: "026/CEA/125078", Amount: 100},       // sin tipo
		{PolicyNo: "026/CEA/125078", Type: "Last Expense"}, // monto cero
		{PolicyNo: "   ", Type: "Last Expense", Amount: 100},
	}
	for _, in := range cases {
		_, err := svc.SubmitClaim(ctx, "u1", in)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestInitiatePayment(t *testing.T) {
	repo, svc := newTestService()
	ctx := context.Background()

	p, err := svc.InitiatePayment(ctx, "u1", PaymentInput{Method: "MPESA", Amount: 1200})
	require.NoError(t, err)
	require.Equal(t, "Pending", p.Status)
	require.Equal(t, "Premium", p.Type)
	require.True(t, strings.HasPrefix(p.Reference, "PAY-"))
	require.Len(t, p.Reference, 12)

	// Referencia explícita se respeta tal cual.
	p2, err := svc.InitiatePayment(ctx, "u1", PaymentInput{Reference: "INV-0042", Type: "Contribution", Amount: 300})
	require.NoError(t, err)
	require.Equal(t, "INV-0042", p2.Reference)
	require.Equal(t, "Contribution", p2.Type)

	_, err = svc.InitiatePayment(ctx, "u1", PaymentInput{Amount: 0})
	require.ErrorIs(t, err, ErrValidation)

	logs, err := repo.ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "payment.initiate", logs[0].Action)
}

func TestSummaryCounts(t *testing.T) {
	repo, svc := newTestService()
	ctx := context.Background()

	repo.SeedProject(types.Project{Title: "Community Hall", Status: "Active"})
	repo.SeedPurchaseOrder(types.PurchaseOrder{PONumber: "PO-001", Status: "Open"})
	_, err := svc.InitiatePayment(ctx, "u1", PaymentInput{Amount: 10})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, sum.Projects)
	require.EqualValues(t, 1, sum.PurchaseOrders)
	require.EqualValues(t, 1, sum.Payments)
}

func TestProjectTasks(t *testing.T) {
	repo, svc := newTestService()
	ctx := context.Background()

	pid := repo.SeedProject(types.Project{Title: "Borehole", Status: "Active"})
	repo.SeedProjectTask(types.ProjectTask{ProjectID: pid, Description: "Survey", IsComplete: true})
	repo.SeedProjectTask(types.ProjectTask{ProjectID: pid + 100, Description: "Other"})

	tasks, err := svc.ProjectTasks(ctx, pid)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Survey", tasks[0].Description)
}

func TestAuditLogsNewestFirstAndClamped(t *testing.T) {
	_, svc := newTestService()
	ctx := context.Background()

	svc.RecordAction(ctx, "admin", "user.set_role", "user", 0, map[string]any{"role_id": 2})
	svc.RecordAction(ctx, "admin", "role.replace_permissions", "role", 2, []string{"payments.view"})

	logs, err := svc.AuditLogs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "role.replace_permissions", logs[0].Action)

	// Límite fuera de rango cae al default.
	logs, err = svc.AuditLogs(ctx, -5)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}
