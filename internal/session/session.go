// Package session maneja las sesiones server-side del portal sobre
// cache.Client. El browser solo ve el SID opaco en una cookie http-only;
// el contenido vive serializado en el backend de cache.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dropDatabas3/sbfportal/internal/cache"
	"github.com/dropDatabas3/sbfportal/internal/security/token"
)

var ErrNotFound = errors.New("session not found")

// Data es el snapshot de una sesión. Una sesión puede estar en dos etapas:
// pendiente de OTP (PendingUserID seteado, UserID vacío) o autenticada
// (UserID seteado). OAuthState guarda el nonce del flujo de Google y se
// limpia en el primer uso.
type Data struct {
	UserID        string    `json:"user_id,omitempty"`
	Email         string    `json:"email,omitempty"`
	PendingUserID string    `json:"pending_user_id,omitempty"`
	OAuthState    string    `json:"oauth_state,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Authenticated indica si la sesión ya pasó el paso de OTP.
func (d *Data) Authenticated() bool { return d.UserID != "" }

// Manager crea, lee y destruye sesiones.
type Manager struct {
	cache cache.Client
	ttl   time.Duration
}

func NewManager(c cache.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{cache: c, ttl: ttl}
}

// TTL expone la duración configurada (para Max-Age de la cookie).
func (m *Manager) TTL() time.Duration { return m.ttl }

func key(sid string) string { return "sess:" + sid }

// Create persiste una sesión nueva y devuelve su SID.
func (m *Manager) Create(ctx context.Context, d *Data) (string, error) {
	sid, err := token.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	d.CreatedAt = time.Now()
	if err := m.put(ctx, sid, d); err != nil {
		return "", err
	}
	return sid, nil
}

// Get devuelve el snapshot o ErrNotFound si el SID no existe o expiró.
func (m *Manager) Get(ctx context.Context, sid string) (*Data, error) {
	if sid == "" {
		return nil, ErrNotFound
	}
	raw, err := m.cache.Get(ctx, key(sid))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var d Data
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		// Snapshot corrupto: tratarlo como inexistente.
		return nil, ErrNotFound
	}
	return &d, nil
}

// Save reescribe el snapshot renovando el TTL completo.
func (m *Manager) Save(ctx context.Context, sid string, d *Data) error {
	return m.put(ctx, sid, d)
}

// Destroy elimina la sesión. Destruir un SID inexistente no es error.
func (m *Manager) Destroy(ctx context.Context, sid string) error {
	return m.cache.Delete(ctx, key(sid))
}

func (m *Manager) put(ctx context.Context, sid string, d *Data) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, key(sid), string(b), m.ttl)
}
