package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	dto "github.com/dropDatabas3/sbfportal/internal/http/dto"
	jwtx "github.com/dropDatabas3/sbfportal/internal/jwt"
	"github.com/dropDatabas3/sbfportal/internal/metrics"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	"github.com/dropDatabas3/sbfportal/internal/otp"
	"github.com/dropDatabas3/sbfportal/internal/security/password"
	tokens "github.com/dropDatabas3/sbfportal/internal/security/token"
	"github.com/dropDatabas3/sbfportal/internal/store"
	"github.com/dropDatabas3/sbfportal/internal/util"
)

const (
	// Largo del secreto opaco del refresh token.
	refreshTokenBytes = 48
	minPasswordLen    = 8
	memberRoleName    = "Member"
)

// Deps contiene las dependencias del servicio de auth.
type Deps struct {
	Repo       store.Repository
	OTP        *otp.Manager
	Issuer     *jwtx.Issuer
	Resolver   *acl.Resolver
	RefreshTTL time.Duration
}

type service struct {
	deps Deps
	// Colapsa rotaciones concurrentes del mismo refresh token: todas las
	// requests en vuelo comparten el resultado de una sola rotación.
	rotations singleflight.Group
}

func NewService(deps Deps) Service {
	if deps.RefreshTTL <= 0 {
		deps.RefreshTTL = 720 * time.Hour
	}
	return &service{deps: deps}
}

func (s *service) Register(ctx context.Context, in dto.RegisterRequest) (*types.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Register"),
	)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	hash, err := password.Hash(password.Default, in.Password)
	if err != nil {
		return nil, err
	}

	u := &types.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if role, err := s.deps.Repo.GetRoleByName(ctx, memberRoleName); err == nil {
		u.RoleID = &role.ID
		u.Role = role
	} else {
		log.Warn("default member role missing, user registered without role", logger.Err(err))
	}

	if err := s.deps.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	log.Info("user registered", logger.UserID(u.ID))
	return u, nil
}

func (s *service) Login(ctx context.Context, in dto.LoginRequest) (*types.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Login"),
	)

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.deps.Repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			log.Debug("unknown email", logger.Email(util.MaskEmail(in.Email)))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(in.Password, u.PasswordHash) {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		log.Debug("password mismatch", logger.UserID(u.ID))
		return nil, ErrInvalidCredentials
	}
	if u.DisabledAt != nil {
		return nil, ErrUserDisabled
	}

	if err := s.deps.OTP.Issue(ctx, u); err != nil {
		return nil, err
	}
	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	log.Info("credentials accepted, otp issued", logger.UserID(u.ID))
	return u, nil
}

func (s *service) RequestOTP(ctx context.Context, pendingUserID string) error {
	u, err := s.deps.Repo.GetUserByID(ctx, pendingUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if u.DisabledAt != nil {
		return ErrUserDisabled
	}
	return s.deps.OTP.Issue(ctx, u)
}

func (s *service) VerifyOTP(ctx context.Context, pendingUserID, code string) (*TokenPair, *types.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("VerifyOTP"),
	)

	u, err := s.deps.Repo.GetUserByID(ctx, pendingUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if u.DisabledAt != nil {
		return nil, nil, ErrUserDisabled
	}

	if err := s.deps.OTP.Verify(ctx, u.ID, code); err != nil {
		switch {
		case errors.Is(err, otp.ErrCodeExpired):
			metrics.OTPVerifications.WithLabelValues("expired").Inc()
		case errors.Is(err, otp.ErrCodeMismatch):
			metrics.OTPVerifications.WithLabelValues("mismatch").Inc()
		case errors.Is(err, otp.ErrNoPending):
			metrics.OTPVerifications.WithLabelValues("none").Inc()
		}
		return nil, nil, err
	}
	metrics.OTPVerifications.WithLabelValues("ok").Inc()

	pair, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	log.Info("otp verified, tokens issued", logger.UserID(u.ID))
	return pair, u, nil
}

// issueTokens emite el access JWT y persiste un refresh token nuevo.
// A la base solo llega el hash del secreto.
func (s *service) issueTokens(ctx context.Context, u *types.User) (*TokenPair, error) {
	access, accessExp, err := s.deps.Issuer.IssueAccess(u.ID, u.Email)
	if err != nil {
		return nil, err
	}

	secret, err := tokens.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return nil, err
	}
	refreshExp := time.Now().Add(s.deps.RefreshTTL)
	rt := &types.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: tokens.SHA256Base64URL(secret),
		ExpiresAt: refreshExp,
	}
	if err := s.deps.Repo.CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     secret,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// rotated agrupa el resultado de una rotación compartida por singleflight.
type rotated struct {
	pair *TokenPair
	user *types.User
}

func (s *service) Refresh(ctx context.Context, rawToken string) (*TokenPair, *types.User, error) {
	if rawToken == "" {
		return nil, nil, ErrInvalidToken
	}
	hash := tokens.SHA256Base64URL(rawToken)

	// singleflight por hash: N requests con el mismo token producen UNA
	// rotación y comparten el par resultante.
	v, err, _ := s.rotations.Do(hash, func() (any, error) {
		return s.rotate(ctx, hash)
	})
	if err != nil {
		return nil, nil, err
	}
	res := v.(*rotated)
	return res.pair, res.user, nil
}

func (s *service) rotate(ctx context.Context, hash string) (*rotated, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Refresh"),
	)

	old, err := s.deps.Repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RefreshRotations.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if old.Revoked() {
		// Reuso de un token ya rotado: posible robo, se loguea fuerte.
		metrics.RefreshRotations.WithLabelValues("reuse").Inc()
		log.Warn("refresh token reuse detected", logger.UserID(old.UserID))
		return nil, ErrInvalidToken
	}
	if time.Now().After(old.ExpiresAt) {
		metrics.RefreshRotations.WithLabelValues("invalid").Inc()
		return nil, ErrTokenExpired
	}

	u, err := s.deps.Repo.GetUserByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if u.DisabledAt != nil {
		return nil, ErrUserDisabled
	}

	access, accessExp, err := s.deps.Issuer.IssueAccess(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	secret, err := tokens.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return nil, err
	}
	refreshExp := time.Now().Add(s.deps.RefreshTTL)
	next := &types.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: tokens.SHA256Base64URL(secret),
		ExpiresAt: refreshExp,
	}

	if err := s.deps.Repo.RotateRefreshToken(ctx, old.ID, next); err != nil {
		if errors.Is(err, store.ErrInvalid) {
			// Otra rotación ganó la carrera fuera de este proceso.
			metrics.RefreshRotations.WithLabelValues("reuse").Inc()
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	metrics.RefreshRotations.WithLabelValues("ok").Inc()

	return &rotated{
		pair: &TokenPair{
			AccessToken:      access,
			AccessExpiresAt:  accessExp,
			RefreshToken:     secret,
			RefreshExpiresAt: refreshExp,
		},
		user: u,
	}, nil
}

func (s *service) Revoke(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	rt, err := s.deps.Repo.GetRefreshTokenByHash(ctx, tokens.SHA256Base64URL(rawToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.deps.Repo.RevokeRefreshToken(ctx, rt.ID)
}

func (s *service) Summary(ctx context.Context, user *types.User) (*types.UserSummary, error) {
	perms, err := s.deps.Resolver.EffectivePermissions(ctx, user)
	if err != nil {
		return nil, err
	}
	role := user.Role
	if role == nil && user.RoleID != nil {
		if r, err := s.deps.Repo.GetRoleByID(ctx, *user.RoleID); err == nil {
			role = r
		}
	}
	return &types.UserSummary{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        role,
		Permissions: perms,
	}, nil
}
