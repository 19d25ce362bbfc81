package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	"github.com/dropDatabas3/sbfportal/internal/cache"
	svc "github.com/dropDatabas3/sbfportal/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/sbfportal/internal/jwt"
	"github.com/dropDatabas3/sbfportal/internal/oauth/google"
	"github.com/dropDatabas3/sbfportal/internal/otp"
	"github.com/dropDatabas3/sbfportal/internal/session"
	"github.com/dropDatabas3/sbfportal/internal/store/memory"
)

type dropSender struct{}

func (dropSender) Send(to, subject, html, text string) error { return nil }

type callbackFixture struct {
	repo     *memory.Store
	sessions *session.Manager
	ctrl     *Controller
}

// newCallbackFixture arma el controller con un client de Google sin
// configurar: el state se valida antes de tocar al provider, así que un
// mismatch jamás debería llegar ahí.
func newCallbackFixture(t *testing.T) *callbackFixture {
	t.Helper()
	repo := memory.New()
	repo.SeedDefaults()
	cc := cache.NewMemory("t:", time.Minute)
	core := svc.NewService(svc.Deps{
		Repo:       repo,
		OTP:        otp.NewManager(repo, dropSender{}, 5*time.Minute),
		Issuer:     jwtx.NewIssuer("test-secret", "sbfportal", time.Minute),
		Resolver:   acl.NewResolver(repo, cc, time.Minute),
		RefreshTTL: time.Hour,
	})
	sessions := session.NewManager(cc, time.Hour)

	ctrl := New(Deps{
		Social: svc.NewSocialService(svc.SocialDeps{
			Google: google.New("", "", ""),
			Repo:   repo,
			Core:   core,
		}),
		Sessions:      sessions,
		SessionCookie: session.CookieConfig{Name: "sbf_sid"},
		RefreshCookie: session.CookieConfig{Name: "sbf_refresh", Path: "/api/auth"},
		FrontendURL:   "https://app.sbf.test",
	})
	return &callbackFixture{repo: repo, sessions: sessions, ctrl: ctrl}
}

func (f *callbackFixture) callback(t *testing.T, sid, code, state string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code="+code+"&state="+state, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sbf_sid", Value: sid})
	}
	rec := httptest.NewRecorder()
	f.ctrl.Callback(rec, req)
	return rec
}

func (f *callbackFixture) requireNoAccount(t *testing.T) {
	t.Helper()
	users, err := f.repo.ListUsers(context.Background())
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestCallbackStateMismatchCreatesNothing(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.Create(ctx, &session.Data{OAuthState: "expected-nonce"})
	require.NoError(t, err)

	rec := f.callback(t, sid, "auth-code", "forged-nonce")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://app.sbf.test/login?error=oauth_state_mismatch", rec.Header().Get("Location"))

	f.requireNoAccount(t)
	data, err := f.sessions.Get(ctx, sid)
	require.NoError(t, err)
	require.False(t, data.Authenticated())
	// El nonce se consumió en el intento fallido.
	require.Empty(t, data.OAuthState)
}

func TestCallbackReplayedStateCreatesNothing(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.Create(ctx, &session.Data{OAuthState: "one-shot-nonce"})
	require.NoError(t, err)

	// El primer intento con state ajeno quema el nonce; el replay con el
	// valor correcto llega tarde.
	f.callback(t, sid, "auth-code", "forged-nonce")
	rec := f.callback(t, sid, "auth-code", "one-shot-nonce")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://app.sbf.test/login?error=oauth_state_mismatch", rec.Header().Get("Location"))

	f.requireNoAccount(t)
	data, err := f.sessions.Get(ctx, sid)
	require.NoError(t, err)
	require.False(t, data.Authenticated())
}

func TestCallbackWithoutSessionCreatesNothing(t *testing.T) {
	f := newCallbackFixture(t)

	rec := f.callback(t, "", "auth-code", "whatever")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://app.sbf.test/login?error=oauth_state_mismatch", rec.Header().Get("Location"))
	f.requireNoAccount(t)
}

func TestCallbackMissingParamsRedirectsDenied(t *testing.T) {
	f := newCallbackFixture(t)

	rec := f.callback(t, "", "", "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://app.sbf.test/login?error=oauth_denied", rec.Header().Get("Location"))
	f.requireNoAccount(t)
}
