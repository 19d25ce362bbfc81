package session

import (
	"net/http"
	"strings"
	"time"
)

// parseSameSite convierte el string de config a http.SameSite.
// Acepta: "", "lax", "strict", "none" (case-insensitive). Default: Lax.
func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// CookieConfig agrupa los atributos que vienen de config.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	SameSite string
	Secure   bool
}

// BuildCookie arma una cookie http-only con los flags de seguridad dados.
func BuildCookie(cfg CookieConfig, value string, ttl time.Duration) *http.Cookie {
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	c := &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     path,
		Expires:  time.Now().UTC().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(cfg.SameSite),
	}
	if cfg.Domain != "" {
		c.Domain = cfg.Domain
	}
	return c
}

// BuildDeletionCookie devuelve una cookie que borra la anterior en el
// browser. Mismo nombre/path/domain para que el user-agent la sobreescriba.
func BuildDeletionCookie(cfg CookieConfig) *http.Cookie {
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	c := &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(cfg.SameSite),
	}
	if cfg.Domain != "" {
		c.Domain = cfg.Domain
	}
	return c
}
