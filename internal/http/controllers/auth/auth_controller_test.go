package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	"github.com/dropDatabas3/sbfportal/internal/cache"
	"github.com/dropDatabas3/sbfportal/internal/config"
	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	dto "github.com/dropDatabas3/sbfportal/internal/http/dto"
	svc "github.com/dropDatabas3/sbfportal/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/sbfportal/internal/jwt"
	"github.com/dropDatabas3/sbfportal/internal/otp"
	"github.com/dropDatabas3/sbfportal/internal/session"
	"github.com/dropDatabas3/sbfportal/internal/store/memory"
)

type nullSender struct{}

func (nullSender) Send(to, subject, html, text string) error { return nil }

// webFixture monta el controller detrás de un server real con cookie jar:
// los flujos se ejercitan como los ve un browser, cookies incluidas.
type webFixture struct {
	repo    *memory.Store
	core    svc.Service
	client  *http.Client
	baseURL string
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()

	// Las cookies salen de los defaults de config, no de valores inventados
	// por el test: el scope del refresh cookie es parte del contrato.
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("app:\n  env: dev\n"), 0o600))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	repo := memory.New()
	repo.SeedDefaults()
	cc := cache.NewMemory("t:", time.Minute)
	core := svc.NewService(svc.Deps{
		Repo:       repo,
		OTP:        otp.NewManager(repo, nullSender{}, 5*time.Minute),
		Issuer:     jwtx.NewIssuer("test-secret", "sbfportal", time.Minute),
		Resolver:   acl.NewResolver(repo, cc, time.Minute),
		RefreshTTL: time.Hour,
	})
	sessions := session.NewManager(cc, time.Hour)

	ctrl := New(Deps{
		Service:       core,
		Sessions:      sessions,
		SessionCookie: session.CookieConfig{Name: cfg.Auth.Session.CookieName},
		RefreshCookie: session.CookieConfig{
			Name: cfg.Auth.Refresh.CookieName,
			Path: cfg.Auth.Refresh.CookiePath,
		},
	})

	r := chi.NewRouter()
	r.Post("/api/auth/register", ctrl.Register)
	r.Post("/api/auth/login", ctrl.Login)
	r.Post("/api/auth/request-otp", ctrl.RequestOTP)
	r.Post("/api/auth/verify-otp", ctrl.VerifyOTP)
	r.Post("/api/auth/refresh", ctrl.Refresh)
	r.Post("/api/auth/logout", ctrl.Logout)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &webFixture{
		repo:    repo,
		core:    core,
		client:  &http.Client{Jar: jar},
		baseURL: server.URL,
	}
}

func (f *webFixture) postJSON(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := f.client.Post(f.baseURL+path, "application/json", &buf)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

// authenticate corre register→login→verify-otp completo via HTTP.
func (f *webFixture) authenticate(t *testing.T, email, pass string) types.UserSummary {
	t.Helper()
	resp, raw := f.postJSON(t, "/api/auth/register", dto.RegisterRequest{Name: "Web User", Email: email, Password: pass})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var summary types.UserSummary
	require.NoError(t, json.Unmarshal(raw, &summary))

	resp, _ = f.postJSON(t, "/api/auth/login", dto.LoginRequest{Email: email, Password: pass})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tok, err := f.repo.LatestPendingOtp(context.Background(), summary.ID)
	require.NoError(t, err)
	resp, _ = f.postJSON(t, "/api/auth/verify-otp", dto.VerifyOTPRequest{Code: tok.Code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return summary
}

// refreshCookie lee el valor crudo del refresh token desde el jar.
func (f *webFixture) refreshCookie(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(f.baseURL + "/api/auth/refresh")
	require.NoError(t, err)
	for _, c := range f.client.Jar.Cookies(u) {
		if c.Name == "sbf_refresh" {
			return c.Value
		}
	}
	t.Fatal("refresh cookie not in jar")
	return ""
}

func TestRegisterRespondsUserSummary(t *testing.T) {
	f := newWebFixture(t)

	resp, raw := f.postJSON(t, "/api/auth/register", dto.RegisterRequest{
		Name:     "Alice",
		Email:    "Alice@SBF.Test",
		Password: "Pass123!x",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var summary types.UserSummary
	require.NoError(t, json.Unmarshal(raw, &summary))
	require.NotEmpty(t, summary.ID)
	require.Equal(t, "alice@sbf.test", summary.Email)
	require.NotNil(t, summary.Role)
	require.Equal(t, "Member", summary.Role.Name)
	require.Empty(t, summary.Permissions)
}

// El path del refresh cookie tiene que cubrir /api/auth/logout: si el
// browser no la manda ahí, el logout no tiene token que revocar y el
// refresh robado sigue vivo.
func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newWebFixture(t)
	f.authenticate(t, "alice@sbf.test", "Pass123!x")
	raw := f.refreshCookie(t)

	resp, body := f.postJSON(t, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ack dto.LogoutResponse
	require.NoError(t, json.Unmarshal(body, &ack))
	require.Equal(t, "logged_out", ack.Status)

	_, _, err := f.core.Refresh(context.Background(), raw)
	require.ErrorIs(t, err, svc.ErrInvalidToken)
}

func TestLogoutIsIdempotentOverHTTP(t *testing.T) {
	f := newWebFixture(t)
	f.authenticate(t, "alice@sbf.test", "Pass123!x")

	resp, _ := f.postJSON(t, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.postJSON(t, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// Los rechazos de register/login/verify-otp son 400, no 401 ni 409.
func TestAuthRejectionsRespondBadRequest(t *testing.T) {
	f := newWebFixture(t)

	reg := dto.RegisterRequest{Name: "Alice", Email: "alice@sbf.test", Password: "Pass123!x"}
	resp, _ := f.postJSON(t, "/api/auth/register", reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var appErr struct {
		Code string `json:"code"`
	}

	resp, raw := f.postJSON(t, "/api/auth/register", reg)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &appErr))
	require.Equal(t, "EMAIL_ALREADY_IN_USE", appErr.Code)

	resp, raw = f.postJSON(t, "/api/auth/login", dto.LoginRequest{Email: "alice@sbf.test", Password: "wrong-pass"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &appErr))
	require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)

	resp, _ = f.postJSON(t, "/api/auth/login", dto.LoginRequest{Email: "alice@sbf.test", Password: "Pass123!x"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = f.postJSON(t, "/api/auth/verify-otp", dto.VerifyOTPRequest{Code: "000000x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &appErr))
	require.Equal(t, "INVALID_OTP", appErr.Code)
}
