package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/store/memory"
)

// captureSender guarda lo enviado; con fail=true simula un SMTP caído.
type captureSender struct {
	to, subject, text string
	sent              int
	fail              bool
}

func (c *captureSender) Send(to, subject, _, textBody string) error {
	if c.fail {
		return errors.New("smtp down")
	}
	c.to, c.subject, c.text = to, subject, textBody
	c.sent++
	return nil
}

func testUser() *types.User {
	return &types.User{ID: "user-1", Name: "Ana", Email: "ana@sbf.test"}
}

func TestIssueAndVerify(t *testing.T) {
	repo := memory.New()
	sender := &captureSender{}
	m := NewManager(repo, sender, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Issue(ctx, testUser()))
	require.Equal(t, 1, sender.sent)
	require.Equal(t, "ana@sbf.test", sender.to)

	pending, err := repo.LatestPendingOtp(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, pending.Code, 6)
	require.Contains(t, sender.text, pending.Code)

	require.NoError(t, m.Verify(ctx, "user-1", pending.Code))
}

func TestVerifyConsumptionIsTerminal(t *testing.T) {
	repo := memory.New()
	m := NewManager(repo, &captureSender{}, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Issue(ctx, testUser()))
	pending, err := repo.LatestPendingOtp(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, m.Verify(ctx, "user-1", pending.Code))
	// El mismo código jamás vuelve a aceptar.
	require.ErrorIs(t, m.Verify(ctx, "user-1", pending.Code), ErrNoPending)
}

func TestVerifyWrongCode(t *testing.T) {
	repo := memory.New()
	m := NewManager(repo, &captureSender{}, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Issue(ctx, testUser()))
	require.ErrorIs(t, m.Verify(ctx, "user-1", "000000x"), ErrCodeMismatch)

	// Un intento fallido no consume el código.
	pending, err := repo.LatestPendingOtp(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, m.Verify(ctx, "user-1", pending.Code))
}

func TestVerifyExpiredCode(t *testing.T) {
	repo := memory.New()
	m := NewManager(repo, &captureSender{}, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.CreateOtpToken(ctx, &types.OtpToken{
		UserID:    "user-1",
		Code:      "123456",
		ExpiresAt: time.Now().Add(-time.Second),
	}))
	require.ErrorIs(t, m.Verify(ctx, "user-1", "123456"), ErrCodeExpired)
}

func TestVerifyNoPending(t *testing.T) {
	m := NewManager(memory.New(), &captureSender{}, 5*time.Minute)
	require.ErrorIs(t, m.Verify(context.Background(), "ghost", "123456"), ErrNoPending)
}

func TestLatestUnconsumedWins(t *testing.T) {
	repo := memory.New()
	sender := &captureSender{}
	m := NewManager(repo, sender, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Issue(ctx, testUser()))
	first, err := repo.LatestPendingOtp(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, m.Issue(ctx, testUser()))
	second, err := repo.LatestPendingOtp(ctx, "user-1")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	// El reenvío desplaza al anterior aunque ambos sigan sin consumir.
	if first.Code != second.Code {
		require.ErrorIs(t, m.Verify(ctx, "user-1", first.Code), ErrCodeMismatch)
	}
	require.NoError(t, m.Verify(ctx, "user-1", second.Code))
}

func TestIssueDeliveryFailureKeepsRow(t *testing.T) {
	repo := memory.New()
	sender := &captureSender{fail: true}
	m := NewManager(repo, sender, 5*time.Minute)
	ctx := context.Background()

	// La fila se commitea antes del intento de envío: el fallo de SMTP
	// no invalida el challenge.
	require.ErrorIs(t, m.Issue(ctx, testUser()), ErrDeliveryFailed)

	pending, err := repo.LatestPendingOtp(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, m.Verify(ctx, "user-1", pending.Code))
}
