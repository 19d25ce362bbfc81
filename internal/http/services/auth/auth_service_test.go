package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	"github.com/dropDatabas3/sbfportal/internal/cache"
	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	dto "github.com/dropDatabas3/sbfportal/internal/http/dto"
	jwtx "github.com/dropDatabas3/sbfportal/internal/jwt"
	"github.com/dropDatabas3/sbfportal/internal/otp"
	"github.com/dropDatabas3/sbfportal/internal/security/password"
	tokens "github.com/dropDatabas3/sbfportal/internal/security/token"
	"github.com/dropDatabas3/sbfportal/internal/store/memory"
)

type captureSender struct {
	mu   sync.Mutex
	sent int
}

func (c *captureSender) Send(to, subject, html, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent++
	return nil
}

type fixture struct {
	repo   *memory.Store
	sender *captureSender
	issuer *jwtx.Issuer
	svc    Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.New()
	repo.SeedRole(1, "Admin")
	repo.SeedRole(4, "Member")
	repo.SeedPermission("payments.view", "View Payments")
	repo.SeedPermission("claims.manage", "Manage Claims")
	repo.GrantRolePermission(1, "payments.view")

	sender := &captureSender{}
	issuer := jwtx.NewIssuer("test-secret", "sbfportal", time.Minute)
	resolver := acl.NewResolver(repo, cache.NewMemory("t:", time.Minute), time.Minute)
	svc := NewService(Deps{
		Repo:       repo,
		OTP:        otp.NewManager(repo, sender, 5*time.Minute),
		Issuer:     issuer,
		Resolver:   resolver,
		RefreshTTL: time.Hour,
	})
	return &fixture{repo: repo, sender: sender, issuer: issuer, svc: svc}
}

func (f *fixture) register(t *testing.T, email, pass string) *types.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: pass,
	})
	require.NoError(t, err)
	return u
}

// pendingCode lee el código emitido más reciente directo del store.
func (f *fixture) pendingCode(t *testing.T, userID string) string {
	t.Helper()
	tok, err := f.repo.LatestPendingOtp(context.Background(), userID)
	require.NoError(t, err)
	return tok.Code
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.register(t, "  Alice@SBF.Test ", "Pass123!x")
	require.NotEmpty(t, u.ID)
	require.Equal(t, "alice@sbf.test", u.Email)
	require.NotNil(t, u.Role)
	require.Equal(t, "Member", u.Role.Name)
	require.NotEqual(t, "Pass123!x", u.PasswordHash)

	_, err := f.svc.Register(ctx, dto.RegisterRequest{Name: "X", Email: "alice@sbf.test", Password: "Pass123!x"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{Name: "X", Email: "b@sbf.test", Password: "short"})
	require.ErrorIs(t, err, ErrWeakPassword)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{Email: "c@sbf.test", Password: "Pass123!x"})
	require.ErrorIs(t, err, ErrMissingFields)
}

func TestRegisterWithoutMemberRole(t *testing.T) {
	// Store vacío, sin rol Member: el registro no falla, el usuario queda
	// sin rol y sin permisos hasta que un admin lo asigne.
	repo := memory.New()
	svc := NewService(Deps{
		Repo:       repo,
		OTP:        otp.NewManager(repo, &captureSender{}, 5*time.Minute),
		Issuer:     jwtx.NewIssuer("test-secret", "sbfportal", time.Minute),
		Resolver:   acl.NewResolver(repo, cache.NewMemory("t:", time.Minute), time.Minute),
		RefreshTTL: time.Hour,
	})

	u, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:     "Roleless",
		Email:    "roleless@sbf.test",
		Password: "Pass123!x",
	})
	require.NoError(t, err)
	require.Nil(t, u.RoleID)
	require.Nil(t, u.Role)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice@sbf.test", "Pass123!x")

	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "alice@sbf.test", Password: "wrong-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "nobody@sbf.test", Password: "whatever1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Credenciales en blanco ni siquiera llegan al store.
	_, err = f.svc.Login(ctx, dto.LoginRequest{})
	require.ErrorIs(t, err, ErrMissingFields)
	require.Zero(t, f.sender.sent)
}

func TestLoginDisabledUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hash, err := password.Hash(password.Default, "Pass123!x")
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, f.repo.CreateUser(ctx, &types.User{
		ID:           uuid.NewString(),
		Name:         "Disabled",
		Email:        "off@sbf.test",
		PasswordHash: hash,
		DisabledAt:   &now,
	}))

	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "off@sbf.test", Password: "Pass123!x"})
	require.ErrorIs(t, err, ErrUserDisabled)
	require.Zero(t, f.sender.sent)
}

func TestLoginIssuesOTPAndVerifyEmitsTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice@sbf.test", "Pass123!x")

	logged, err := f.svc.Login(ctx, dto.LoginRequest{Email: "alice@sbf.test", Password: "Pass123!x"})
	require.NoError(t, err)
	require.Equal(t, u.ID, logged.ID)
	require.Equal(t, 1, f.sender.sent)

	code := f.pendingCode(t, u.ID)

	// Código equivocado: no consume el pendiente.
	_, _, err = f.svc.VerifyOTP(ctx, u.ID, "000000x")
	require.ErrorIs(t, err, otp.ErrCodeMismatch)

	pair, verified, err := f.svc.VerifyOTP(ctx, u.ID, code)
	require.NoError(t, err)
	require.Equal(t, u.ID, verified.ID)
	require.NotEmpty(t, pair.RefreshToken)
	require.True(t, pair.RefreshExpiresAt.After(time.Now()))

	claims, err := f.issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.Subject)
	require.Equal(t, "alice@sbf.test", claims.Email)

	// El consumo es terminal: el mismo código no sirve dos veces.
	_, _, err = f.svc.VerifyOTP(ctx, u.ID, code)
	require.ErrorIs(t, err, otp.ErrNoPending)
}

func TestRequestOTPResends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice@sbf.test", "Pass123!x")

	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "alice@sbf.test", Password: "Pass123!x"})
	require.NoError(t, err)
	first := f.pendingCode(t, u.ID)

	require.NoError(t, f.svc.RequestOTP(ctx, u.ID))
	require.Equal(t, 2, f.sender.sent)

	// Gana el más reciente; si difieren, el primero ya no verifica.
	second := f.pendingCode(t, u.ID)
	if first != second {
		_, _, err = f.svc.VerifyOTP(ctx, u.ID, first)
		require.ErrorIs(t, err, otp.ErrCodeMismatch)
	}
	_, _, err = f.svc.VerifyOTP(ctx, u.ID, second)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.RequestOTP(ctx, uuid.NewString()), ErrInvalidCredentials)
}

func (f *fixture) authenticate(t *testing.T) (*types.User, *TokenPair) {
	t.Helper()
	ctx := context.Background()
	u := f.register(t, "alice@sbf.test", "Pass123!x")
	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "alice@sbf.test", Password: "Pass123!x"})
	require.NoError(t, err)
	pair, _, err := f.svc.VerifyOTP(ctx, u.ID, f.pendingCode(t, u.ID))
	require.NoError(t, err)
	return u, pair
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, pair := f.authenticate(t)

	next, owner, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	require.Equal(t, u.ID, owner.ID)

	claims, err := f.issuer.VerifyAccess(next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.Subject)

	// Reuso del token ya rotado: un solo uso por token.
	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	// El sucesor sigue vivo.
	_, _, err = f.svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice@sbf.test", "Pass123!x")

	secret, err := tokens.GenerateOpaqueToken(48)
	require.NoError(t, err)
	require.NoError(t, f.repo.CreateRefreshToken(ctx, &types.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: tokens.SHA256Base64URL(secret),
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, _, err = f.svc.Refresh(ctx, secret)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshUnknownOrEmptyToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Refresh(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = f.svc.Refresh(ctx, "not-a-real-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pair := f.authenticate(t)

	require.NoError(t, f.svc.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, f.svc.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, f.svc.Revoke(ctx, ""))
	require.NoError(t, f.svc.Revoke(ctx, "never-issued"))

	_, _, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSummaryMergesRoleAndDirectGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hash, err := password.Hash(password.Default, "Pass123!x")
	require.NoError(t, err)
	adminRole := int64(1)
	u := &types.User{
		ID:           uuid.NewString(),
		Name:         "Admin",
		Email:        "admin@sbf.test",
		PasswordHash: hash,
		RoleID:       &adminRole,
	}
	require.NoError(t, f.repo.CreateUser(ctx, u))
	_, err = f.repo.ReplaceUserPermissions(ctx, u.ID, []string{"claims.manage"})
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx, u)
	require.NoError(t, err)
	require.Equal(t, u.ID, sum.ID)
	require.NotNil(t, sum.Role)
	require.Equal(t, "Admin", sum.Role.Name)
	require.Equal(t, []string{"claims.manage", "payments.view"}, sum.Permissions)
}
