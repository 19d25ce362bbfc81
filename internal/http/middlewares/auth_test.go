package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	"github.com/dropDatabas3/sbfportal/internal/cache"
	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	jwtx "github.com/dropDatabas3/sbfportal/internal/jwt"
	"github.com/dropDatabas3/sbfportal/internal/session"
	"github.com/dropDatabas3/sbfportal/internal/store/memory"
)

type guardFixture struct {
	repo     *memory.Store
	sessions *session.Manager
	issuer   *jwtx.Issuer
	deps     GuardDeps
	user     *types.User
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	repo := memory.New()
	sessions := session.NewManager(cache.NewMemory("t:", time.Minute), time.Minute)
	issuer := jwtx.NewIssuer("test-secret", "sbfportal", time.Minute)

	u := &types.User{
		ID:           uuid.NewString(),
		Name:         "Alice",
		Email:        "alice@sbf.test",
		PasswordHash: "x",
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))

	return &guardFixture{
		repo:     repo,
		sessions: sessions,
		issuer:   issuer,
		deps: GuardDeps{
			Sessions:      sessions,
			SessionCookie: "sbf_sid",
			Issuer:        issuer,
			Repo:          repo,
		},
		user: u,
	}
}

// probe devuelve un handler que captura el actor resuelto por el guard.
func probe(captured **Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetActor(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthWithSessionCookie(t *testing.T) {
	f := newGuardFixture(t)
	sid, err := f.sessions.Create(context.Background(), &session.Data{UserID: f.user.ID, Email: f.user.Email})
	require.NoError(t, err)

	var actor *Actor
	h := RequireAuth(f.deps)(probe(&actor))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "sbf_sid", Value: sid})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, actor)
	require.Equal(t, f.user.ID, actor.User.ID)
	require.Equal(t, "session", actor.Source)
	require.Equal(t, sid, actor.SessionID)
}

func TestRequireAuthPendingSessionDoesNotAuthenticate(t *testing.T) {
	f := newGuardFixture(t)
	sid, err := f.sessions.Create(context.Background(), &session.Data{PendingUserID: f.user.ID})
	require.NoError(t, err)

	var actor *Actor
	h := RequireAuth(f.deps)(probe(&actor))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "sbf_sid", Value: sid})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, actor)
}

func TestRequireAuthWithBearer(t *testing.T) {
	f := newGuardFixture(t)
	access, _, err := f.issuer.IssueAccess(f.user.ID, f.user.Email)
	require.NoError(t, err)

	var actor *Actor
	h := RequireAuth(f.deps)(probe(&actor))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, actor)
	require.Equal(t, "bearer", actor.Source)
	require.Empty(t, actor.SessionID)
}

func TestRequireAuthRejectsGarbageBearer(t *testing.T) {
	f := newGuardFixture(t)

	var actor *Actor
	h := RequireAuth(f.deps)(probe(&actor))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, actor)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestRequireAuthNoCredentials(t *testing.T) {
	f := newGuardFixture(t)

	var actor *Actor
	h := RequireAuth(f.deps)(probe(&actor))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, actor)
}

func TestRequireAuthDisabledUserCutsBothPaths(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()

	now := time.Now()
	off := &types.User{
		ID:           uuid.NewString(),
		Name:         "Disabled",
		Email:        "off@sbf.test",
		PasswordHash: "x",
		DisabledAt:   &now,
	}
	require.NoError(t, f.repo.CreateUser(ctx, off))

	// El JWT sigue siendo criptográficamente válido, pero el guard recarga
	// el usuario en cada request y corta igual.
	access, _, err := f.issuer.IssueAccess(off.ID, off.Email)
	require.NoError(t, err)
	sid, err := f.sessions.Create(ctx, &session.Data{UserID: off.ID})
	require.NoError(t, err)

	var actor *Actor
	h := RequireAuth(f.deps)(probe(&actor))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "sbf_sid", Value: sid})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, actor)
}

func TestRequirePermission(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()

	f.repo.SeedPermission("payments.view", "View Payments")
	_, err := f.repo.ReplaceUserPermissions(ctx, f.user.ID, []string{"payments.view"})
	require.NoError(t, err)
	resolver := acl.NewResolver(f.repo, cache.NewMemory("t:", time.Minute), time.Minute)

	access, _, err := f.issuer.IssueAccess(f.user.ID, f.user.Email)
	require.NoError(t, err)

	var actor *Actor
	allowed := RequireAuth(f.deps)(RequirePermission(resolver, "payments.view")(probe(&actor)))
	denied := RequireAuth(f.deps)(RequirePermission(resolver, "pos.view")(probe(&actor)))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/payments", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	allowed.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/pos", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	denied.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermissionWithoutActor(t *testing.T) {
	f := newGuardFixture(t)
	resolver := acl.NewResolver(f.repo, cache.NewMemory("t:", time.Minute), time.Minute)

	var actor *Actor
	h := RequirePermission(resolver, "payments.view")(probe(&actor))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
