// Package auth contiene los controllers del flujo de autenticación.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	dto "github.com/dropDatabas3/sbfportal/internal/http/dto"
	httperrors "github.com/dropDatabas3/sbfportal/internal/http/errors"
	"github.com/dropDatabas3/sbfportal/internal/http/helpers"
	"github.com/dropDatabas3/sbfportal/internal/http/middlewares"
	svc "github.com/dropDatabas3/sbfportal/internal/http/services/auth"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	"github.com/dropDatabas3/sbfportal/internal/otp"
	"github.com/dropDatabas3/sbfportal/internal/session"
)

// Controller maneja los endpoints de /api/auth.
type Controller struct {
	service       svc.Service
	sessions      *session.Manager
	sessionCookie session.CookieConfig
	refreshCookie session.CookieConfig
}

// Deps agrupa las dependencias del controller.
type Deps struct {
	Service       svc.Service
	Sessions      *session.Manager
	SessionCookie session.CookieConfig
	RefreshCookie session.CookieConfig
}

func New(deps Deps) *Controller {
	return &Controller{
		service:       deps.Service,
		sessions:      deps.Sessions,
		sessionCookie: deps.SessionCookie,
		refreshCookie: deps.RefreshCookie,
	}
}

// Register maneja POST /api/auth/register.
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Register"))

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	u, err := c.service.Register(ctx, req)
	if err != nil {
		log.Debug("register rejected", logger.Err(err))
		c.writeError(w, err)
		return
	}

	summary, err := c.service.Summary(ctx, u)
	if err != nil {
		log.Error("register summary failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, summary)
}

// Login maneja POST /api/auth/login. Nunca devuelve tokens: deja la sesión
// pendiente de OTP y responde "otp_sent".
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	u, err := c.service.Login(ctx, req)
	if err != nil {
		log.Debug("login rejected", logger.Err(err))
		c.writeError(w, err)
		return
	}

	sid, err := c.sessions.Create(ctx, &session.Data{
		PendingUserID: u.ID,
		Email:         u.Email,
	})
	if err != nil {
		log.Error("pending session create failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	http.SetCookie(w, session.BuildCookie(c.sessionCookie, sid, c.sessions.TTL()))
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{Status: "otp_sent"})
}

// RequestOTP maneja POST /api/auth/request-otp: reemite el código para la
// sesión pendiente.
func (c *Controller) RequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.RequestOTP"))

	data, _, ok := c.pendingSession(w, r)
	if !ok {
		return
	}

	if err := c.service.RequestOTP(ctx, data.PendingUserID); err != nil {
		log.Warn("otp resend failed", logger.Err(err))
		c.writeError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{Status: "otp_sent"})
}

// VerifyOTP maneja POST /api/auth/verify-otp: consume el código, promueve
// la sesión y emite el par de tokens.
func (c *Controller) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.VerifyOTP"))

	var req dto.VerifyOTPRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	data, sid, ok := c.pendingSession(w, r)
	if !ok {
		return
	}

	pair, u, err := c.service.VerifyOTP(ctx, data.PendingUserID, req.Code)
	if err != nil {
		log.Debug("otp verification failed", logger.Err(err))
		c.writeError(w, err)
		return
	}

	// Promover la sesión: identidad confirmada, pending fuera.
	data.UserID = u.ID
	data.Email = u.Email
	data.PendingUserID = ""
	if err := c.sessions.Save(ctx, sid, data); err != nil {
		log.Error("session promote failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	c.writeTokens(w, r, pair, u)
}

// Refresh maneja POST /api/auth/refresh. El refresh token viaja solo en la
// cookie http-only; el usado queda revocado y el sucesor lo reemplaza.
func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Refresh"))

	ck, err := r.Cookie(c.refreshCookie.Name)
	if err != nil || ck.Value == "" {
		httperrors.WriteError(w, httperrors.ErrInvalidToken)
		return
	}

	pair, u, err := c.service.Refresh(ctx, ck.Value)
	if err != nil {
		log.Debug("refresh rejected", logger.Err(err))
		http.SetCookie(w, session.BuildDeletionCookie(c.refreshCookie))
		c.writeError(w, err)
		return
	}

	c.writeTokens(w, r, pair, u)
}

// Logout maneja POST /api/auth/logout: destruye la sesión y revoca el
// refresh token de la cookie. Los access tokens ya emitidos viven su TTL.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Logout"))

	if ck, err := r.Cookie(c.refreshCookie.Name); err == nil && ck.Value != "" {
		if err := c.service.Revoke(ctx, ck.Value); err != nil {
			log.Warn("refresh revoke on logout failed", logger.Err(err))
		}
	}
	if ck, err := r.Cookie(c.sessionCookie.Name); err == nil && ck.Value != "" {
		if err := c.sessions.Destroy(ctx, ck.Value); err != nil {
			log.Warn("session destroy failed", logger.Err(err))
		}
	}

	http.SetCookie(w, session.BuildDeletionCookie(c.sessionCookie))
	http.SetCookie(w, session.BuildDeletionCookie(c.refreshCookie))
	helpers.WriteJSON(w, http.StatusOK, dto.LogoutResponse{Status: "logged_out"})
}

// Me maneja GET /api/me. Corre detrás de RequireAuth.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middlewares.GetActor(ctx)
	if actor == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	summary, err := c.service.Summary(ctx, actor.User)
	if err != nil {
		logger.From(ctx).Error("me summary failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MeResponse{User: summary})
}

// pendingSession carga la sesión del caller y exige que esté en la etapa
// pendiente de OTP. Escribe el error si no lo está.
func (c *Controller) pendingSession(w http.ResponseWriter, r *http.Request) (*session.Data, string, bool) {
	ck, err := r.Cookie(c.sessionCookie.Name)
	if err != nil || ck.Value == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("no pending login"))
		return nil, "", false
	}
	data, err := c.sessions.Get(r.Context(), ck.Value)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrSessionExpired)
		return nil, "", false
	}
	if data.PendingUserID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("no pending login"))
		return nil, "", false
	}
	return data, ck.Value, true
}

// writeTokens responde el par: access en el cuerpo, refresh en cookie.
func (c *Controller) writeTokens(w http.ResponseWriter, r *http.Request, pair *svc.TokenPair, u *types.User) {
	refreshTTL := time.Until(pair.RefreshExpiresAt)
	http.SetCookie(w, session.BuildCookie(c.refreshCookie, pair.RefreshToken, refreshTTL))

	resp := dto.TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(pair.AccessExpiresAt).Seconds()),
	}
	if u != nil {
		if summary, err := c.service.Summary(r.Context(), u); err == nil {
			resp.User = summary
		}
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// writeError mapea los sentinels del service a AppError.
func (c *Controller) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrWeakPassword):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("password must be at least 8 characters"))
	case errors.Is(err, svc.ErrEmailTaken):
		httperrors.WriteError(w, httperrors.ErrEmailAlreadyInUse)
	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrUserDisabled):
		httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("account disabled"))
	case errors.Is(err, otp.ErrNoPending), errors.Is(err, otp.ErrCodeExpired), errors.Is(err, otp.ErrCodeMismatch):
		httperrors.WriteError(w, httperrors.ErrInvalidOTP)
	case errors.Is(err, otp.ErrDeliveryFailed):
		httperrors.WriteError(w, httperrors.ErrBadGateway.WithDetail("could not deliver verification code"))
	case errors.Is(err, svc.ErrInvalidToken):
		httperrors.WriteError(w, httperrors.ErrInvalidToken)
	case errors.Is(err, svc.ErrTokenExpired):
		httperrors.WriteError(w, httperrors.ErrInvalidToken.WithDetail("refresh token expired"))
	default:
		httperrors.WriteError(w, httperrors.FromError(err))
	}
}
