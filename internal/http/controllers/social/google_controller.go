// Package social contiene el controller del login federado con Google.
package social

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	svc "github.com/dropDatabas3/sbfportal/internal/http/services/auth"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	tokens "github.com/dropDatabas3/sbfportal/internal/security/token"
	"github.com/dropDatabas3/sbfportal/internal/session"
)

// Controller maneja GET /api/auth/google/start y /callback. El resultado
// siempre es un redirect al frontend: errores via ?error=, éxito con el
// access token como query param de un solo uso y el refresh en cookie.
type Controller struct {
	social        svc.SocialService
	sessions      *session.Manager
	sessionCookie session.CookieConfig
	refreshCookie session.CookieConfig
	frontendURL   string
}

type Deps struct {
	Social        svc.SocialService
	Sessions      *session.Manager
	SessionCookie session.CookieConfig
	RefreshCookie session.CookieConfig
	FrontendURL   string
}

func New(deps Deps) *Controller {
	return &Controller{
		social:        deps.Social,
		sessions:      deps.Sessions,
		sessionCookie: deps.SessionCookie,
		refreshCookie: deps.RefreshCookie,
		frontendURL:   deps.FrontendURL,
	}
}

// Start inicia el flujo: genera el state nonce, lo ata a la sesión del
// caller y redirige a Google. Sin client id configurado, fail-closed al
// frontend con error.
func (c *Controller) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Social.Start"))

	authURL, state, err := c.social.Start(ctx)
	if err != nil {
		if errors.Is(err, svc.ErrOAuthUnavailable) {
			c.redirectError(w, r, "oauth_unavailable")
			return
		}
		log.Error("oauth start failed", logger.Err(err))
		c.redirectError(w, r, "oauth_error")
		return
	}

	// Reusar la sesión del caller si existe; crear una efímera si no.
	var data *session.Data
	var sid string
	if ck, err := r.Cookie(c.sessionCookie.Name); err == nil && ck.Value != "" {
		if d, err := c.sessions.Get(ctx, ck.Value); err == nil {
			data, sid = d, ck.Value
		}
	}
	if data == nil {
		data = &session.Data{}
		newSid, err := c.sessions.Create(ctx, data)
		if err != nil {
			log.Error("oauth session create failed", logger.Err(err))
			c.redirectError(w, r, "oauth_error")
			return
		}
		sid = newSid
		http.SetCookie(w, session.BuildCookie(c.sessionCookie, sid, c.sessions.TTL()))
	}

	data.OAuthState = state
	if err := c.sessions.Save(ctx, sid, data); err != nil {
		log.Error("oauth state save failed", logger.Err(err))
		c.redirectError(w, r, "oauth_error")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback procesa la vuelta de Google. El nonce se limpia en el primer
// uso: un state repetido o ajeno jamás crea sesión ni cuenta.
func (c *Controller) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Social.Callback"))

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		c.redirectError(w, r, "oauth_denied")
		return
	}

	ck, err := r.Cookie(c.sessionCookie.Name)
	if err != nil || ck.Value == "" {
		c.redirectError(w, r, "oauth_state_mismatch")
		return
	}
	data, err := c.sessions.Get(ctx, ck.Value)
	if err != nil {
		c.redirectError(w, r, "oauth_state_mismatch")
		return
	}

	expected := data.OAuthState
	// Consumir el nonce antes de validar: un retry con el mismo state cae acá.
	data.OAuthState = ""
	if err := c.sessions.Save(ctx, ck.Value, data); err != nil {
		log.Error("oauth state clear failed", logger.Err(err))
		c.redirectError(w, r, "oauth_error")
		return
	}
	if expected == "" || !tokens.ConstantTimeEquals(expected, state) {
		log.Warn("oauth state mismatch")
		c.redirectError(w, r, "oauth_state_mismatch")
		return
	}

	pair, u, err := c.social.Callback(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrOAuthUnavailable):
			c.redirectError(w, r, "oauth_unavailable")
		case errors.Is(err, svc.ErrUserDisabled):
			c.redirectError(w, r, "account_disabled")
		default:
			log.Warn("oauth callback failed", logger.Err(err))
			c.redirectError(w, r, "oauth_error")
		}
		return
	}

	// Promover la sesión: el login federado saltea el paso de OTP.
	data.UserID = u.ID
	data.Email = u.Email
	data.PendingUserID = ""
	if err := c.sessions.Save(ctx, ck.Value, data); err != nil {
		log.Error("oauth session promote failed", logger.Err(err))
		c.redirectError(w, r, "oauth_error")
		return
	}

	http.SetCookie(w, session.BuildCookie(c.refreshCookie, pair.RefreshToken, time.Until(pair.RefreshExpiresAt)))

	// Access token de un solo uso en el query: el frontend lo lee y limpia
	// la URL de inmediato.
	dest, err := url.Parse(c.frontendURL)
	if err != nil || c.frontendURL == "" {
		dest = &url.URL{Path: "/"}
	}
	dest.Path = "/oauth/callback"
	q := dest.Query()
	q.Set("access_token", pair.AccessToken)
	q.Set("expires_in", expiresIn(pair))
	dest.RawQuery = q.Encode()
	http.Redirect(w, r, dest.String(), http.StatusFound)
}

func expiresIn(pair *svc.TokenPair) string {
	secs := int64(time.Until(pair.AccessExpiresAt).Seconds())
	if secs < 0 {
		secs = 0
	}
	return strconv.FormatInt(secs, 10)
}

func (c *Controller) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	dest, err := url.Parse(c.frontendURL)
	if err != nil || c.frontendURL == "" {
		dest = &url.URL{Path: "/"}
	}
	dest.Path = "/login"
	q := dest.Query()
	q.Set("error", code)
	dest.RawQuery = q.Encode()
	http.Redirect(w, r, dest.String(), http.StatusFound)
}
