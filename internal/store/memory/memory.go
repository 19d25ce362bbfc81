// Package memory implementa store.Repository en mapas protegidos por mutex.
// Se usa en desarrollo local (storage.driver=memory) y en tests; reproduce
// la misma semántica de errores que el adapter de PostgreSQL.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

type Store struct {
	mu sync.RWMutex

	users       map[string]*types.User // por id
	roles       map[int64]*types.Role
	permissions map[string]*types.Permission // catálogo, por key
	rolePerms   map[int64]map[string]struct{}
	userPerms   map[string]map[string]struct{}

	otps      []*types.OtpToken
	nextOtpID int64

	refresh map[string]*types.RefreshToken // por id

	policies  []*types.Policy
	kin       []*types.NextOfKin
	claims    []*types.Claim
	payments  []*types.Payment
	orders    []*types.PurchaseOrder
	projects  []*types.Project
	tasks     []*types.ProjectTask
	audits    []*types.AuditLog
	nextRowID int64
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		users:       map[string]*types.User{},
		roles:       map[int64]*types.Role{},
		permissions: map[string]*types.Permission{},
		rolePerms:   map[int64]map[string]struct{}{},
		userPerms:   map[string]map[string]struct{}{},
		refresh:     map[string]*types.RefreshToken{},
		nextOtpID:   1,
		nextRowID:   1,
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func (s *Store) nextID() int64 {
	id := s.nextRowID
	s.nextRowID++
	return id
}

// ---------- Usuarios ----------

func (s *Store) CreateUser(_ context.Context, u *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return store.ErrConflict
		}
	}
	now := time.Now()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// userCopy arma una copia con el rol embebido resuelto.
func (s *Store) userCopy(u *types.User) *types.User {
	cp := *u
	if u.RoleID != nil {
		if r, ok := s.roles[*u.RoleID]; ok {
			rc := *r
			cp.Role = &rc
		}
	}
	return &cp
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return s.userCopy(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.userCopy(u), nil
}

func (s *Store) ListUsers(_ context.Context) ([]types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *s.userCopy(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SetUserRole(_ context.Context, userID string, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return store.ErrInvalid
	}
	rid := roleID
	u.RoleID = &rid
	u.UpdatedAt = time.Now()
	return nil
}

// ---------- Roles y permisos ----------

// SeedRole inserta un rol con id explícito. Pensado para fixtures de test
// y el bootstrap del driver memory.
func (s *Store) SeedRole(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[id] = &types.Role{ID: id, Name: name}
}

// SeedPermission agrega una entrada al catálogo.
func (s *Store) SeedPermission(key, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[key] = &types.Permission{Key: key, Label: label}
}

// GrantRolePermission agrega una clave a un rol sin pasar por el replace.
func (s *Store) GrantRolePermission(roleID int64, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rolePerms[roleID] == nil {
		s.rolePerms[roleID] = map[string]struct{}{}
	}
	s.rolePerms[roleID][key] = struct{}{}
}

// baseCatalog es el catálogo de permisos que cargan las migraciones de pg.
var baseCatalog = [][2]string{
	{"admin.access", "Access Admin Portal"},
	{"users.view", "View Users"},
	{"users.manage", "Manage Users"},
	{"roles.view", "View Roles"},
	{"roles.manage", "Manage Roles & Permissions"},
	{"payments.view", "View Payments"},
	{"payments.manage", "Manage Payments"},
	{"pos.view", "View Purchase Orders"},
	{"pos.manage", "Manage Purchase Orders"},
	{"projects.view", "View Projects"},
	{"projects.manage", "Manage Projects"},
	{"claims.manage", "Review Claims"},
	{"approvals.manage", "Manage Approval Workflow"},
	{"ledger.manage", "Manage Ledgers"},
	{"notifications.view", "View Notifications"},
}

// SeedDefaults deja el store en el estado mínimo que el registro y el ACL
// esperan: rol Admin con el catálogo completo y rol Member sin grants. El
// driver memory no corre migraciones ni seed externo, así que el arranque
// lo llama siempre.
func (s *Store) SeedDefaults() {
	s.SeedRole(1, "Admin")
	s.SeedRole(2, "Member")
	for _, p := range baseCatalog {
		s.SeedPermission(p[0], p[1])
		s.GrantRolePermission(1, p[0])
	}
}

func (s *Store) ListRoles(_ context.Context) ([]types.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetRoleByID(_ context.Context, id int64) (*types.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*types.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListPermissions(_ context.Context) ([]types.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) GetRolePermissionKeys(_ context.Context, roleID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.rolePerms[roleID]), nil
}

func (s *Store) GetUserPermissionKeys(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.userPerms[userID]), nil
}

// filterKnown normaliza, de-duplica y descarta claves fuera del catálogo.
func (s *Store) filterKnown(keys []string) []string {
	seen := map[string]struct{}{}
	var valid []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := s.permissions[k]; ok {
			valid = append(valid, k)
		}
	}
	sort.Strings(valid)
	return valid
}

func (s *Store) ReplaceRolePermissions(_ context.Context, roleID int64, keys []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return nil, store.ErrNotFound
	}
	valid := s.filterKnown(keys)
	set := map[string]struct{}{}
	for _, k := range valid {
		set[k] = struct{}{}
	}
	s.rolePerms[roleID] = set
	return valid, nil
}

func (s *Store) ReplaceUserPermissions(_ context.Context, userID string, keys []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, store.ErrNotFound
	}
	valid := s.filterKnown(keys)
	set := map[string]struct{}{}
	for _, k := range valid {
		set[k] = struct{}{}
	}
	s.userPerms[userID] = set
	return valid, nil
}

// ---------- OTP ----------

func (s *Store) CreateOtpToken(_ context.Context, t *types.OtpToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextOtpID
	s.nextOtpID++
	t.CreatedAt = time.Now()
	cp := *t
	s.otps = append(s.otps, &cp)
	return nil
}

func (s *Store) LatestPendingOtp(_ context.Context, userID string) (*types.OtpToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.otps) - 1; i >= 0; i-- {
		t := s.otps[i]
		if t.UserID == userID && !t.Consumed() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ConsumeOtp(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.otps {
		if t.ID == id {
			if t.Consumed() {
				return store.ErrInvalid
			}
			ts := at
			t.ConsumedAt = &ts
			return nil
		}
	}
	return store.ErrNotFound
}

// ---------- Refresh tokens ----------

func (s *Store) CreateRefreshToken(_ context.Context, t *types.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.CreatedAt = time.Now()
	cp := *t
	s.refresh[t.ID] = &cp
	return nil
}

func (s *Store) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*types.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.refresh {
		if t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID string, newToken *types.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.refresh[oldID]
	if !ok {
		return store.ErrNotFound
	}
	if old.Revoked() {
		return store.ErrInvalid
	}
	now := time.Now()
	old.RevokedAt = &now
	newToken.CreatedAt = now
	cp := *newToken
	s.refresh[newToken.ID] = &cp
	return nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.refresh[id]
	if !ok || t.Revoked() {
		return nil
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}
