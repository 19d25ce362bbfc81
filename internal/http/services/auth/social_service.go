package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/oauth/google"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	tokens "github.com/dropDatabas3/sbfportal/internal/security/token"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

// Errores del flujo federado.
var (
	ErrOAuthUnavailable = fmt.Errorf("oauth provider not configured")
	ErrOAuthExchange    = fmt.Errorf("oauth exchange failed")
)

// SocialService maneja el login federado con Google.
type SocialService interface {
	// Start devuelve la URL de autorización y el state nonce que el
	// controller debe atar a la sesión del caller.
	Start(ctx context.Context) (authURL, state string, err error)

	// Callback canjea el code, trae el perfil y resuelve la cuenta local
	// (creándola con rol Member si no existe). Emite el par de tokens.
	Callback(ctx context.Context, code string) (*TokenPair, *types.User, error)
}

// SocialDeps contiene las dependencias del servicio social.
type SocialDeps struct {
	Google *google.Client
	Repo   store.Repository
	Core   Service
}

type socialService struct {
	deps SocialDeps
}

func NewSocialService(deps SocialDeps) SocialService {
	return &socialService{deps: deps}
}

func (s *socialService) Start(ctx context.Context) (string, string, error) {
	if !s.deps.Google.Enabled() {
		return "", "", ErrOAuthUnavailable
	}
	state, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		return "", "", err
	}
	u, err := s.deps.Google.AuthURL(state)
	if err != nil {
		return "", "", ErrOAuthUnavailable
	}
	return u, state, nil
}

func (s *socialService) Callback(ctx context.Context, code string) (*TokenPair, *types.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.social"),
		logger.Op("Callback"),
	)

	tr, err := s.deps.Google.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, google.ErrNotConfigured) {
			return nil, nil, ErrOAuthUnavailable
		}
		log.Warn("code exchange failed", logger.Err(err))
		return nil, nil, ErrOAuthExchange
	}

	profile, err := s.deps.Google.FetchProfile(ctx, tr.AccessToken)
	if err != nil {
		log.Warn("userinfo fetch failed", logger.Err(err))
		return nil, nil, ErrOAuthExchange
	}

	u, err := s.resolveAccount(ctx, profile)
	if err != nil {
		return nil, nil, err
	}
	if u.DisabledAt != nil {
		return nil, nil, ErrUserDisabled
	}

	svc, ok := s.deps.Core.(*service)
	if !ok {
		return nil, nil, fmt.Errorf("social: unexpected core service type")
	}
	pair, err := svc.issueTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	log.Info("federated login", logger.UserID(u.ID))
	return pair, u, nil
}

// resolveAccount busca por email (case-insensitive) y crea la cuenta si no
// existe. La credencial placeholder "oauth:<uuid>" jamás parsea como PHC
// válido: el login por password queda cerrado para cuentas federadas.
func (s *socialService) resolveAccount(ctx context.Context, p *google.Profile) (*types.User, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	u, err := s.deps.Repo.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = email
	}
	nu := &types.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: "oauth:" + uuid.NewString(),
	}
	if role, err := s.deps.Repo.GetRoleByName(ctx, memberRoleName); err == nil {
		nu.RoleID = &role.ID
		nu.Role = role
	}
	if err := s.deps.Repo.CreateUser(ctx, nu); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Registro concurrente del mismo email: releer.
			return s.deps.Repo.GetUserByEmail(ctx, email)
		}
		return nil, err
	}
	return nu, nil
}
