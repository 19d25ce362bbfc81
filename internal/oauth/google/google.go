// Package google habla el flujo authorization-code con Google: arma la
// URL de autorización, canjea el code y trae el perfil desde userinfo.
// Endpoints fijos, sin discovery: el portal solo federa contra Google.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint    = "https://oauth2.googleapis.com/token"
	userinfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"
)

// ErrNotConfigured se devuelve cuando el flujo se invoca sin credenciales.
// El caller responde fail-closed, nunca redirige a Google a medias.
var ErrNotConfigured = errors.New("google oauth not configured")

// Client implementa el lado relying-party del flujo.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	http *http.Client

	// Redirigibles en tests; en producción quedan los endpoints reales.
	tokenURL    string
	userinfoURL string
}

func New(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		http:         &http.Client{Timeout: 10 * time.Second},
		tokenURL:     tokenEndpoint,
		userinfoURL:  userinfoEndpoint,
	}
}

// Enabled indica si hay credenciales para operar.
func (g *Client) Enabled() bool {
	return g != nil && g.ClientID != "" && g.ClientSecret != ""
}

// AuthURL construye la URL de autorización con el state dado.
func (g *Client) AuthURL(state string) (string, error) {
	if !g.Enabled() {
		return "", ErrNotConfigured
	}
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TokenResponse es la respuesta del endpoint de token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// ExchangeCode canjea el authorization code por tokens.
func (g *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if !g.Enabled() {
		return nil, ErrNotConfigured
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", g.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("token http %d: %s %s", resp.StatusCode, b.Error, b.ErrorDescription)
	}
	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, errors.New("token response without access_token")
	}
	return &tr, nil
}

// Profile es el subconjunto del userinfo que el portal consume.
type Profile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// FetchProfile consulta userinfo con el access token de Google.
func (g *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("userinfo http %d", resp.StatusCode)
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	if p.Sub == "" || p.Email == "" {
		return nil, errors.New("userinfo without sub/email")
	}
	return &p, nil
}
