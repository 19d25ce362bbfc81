package acl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/sbfportal/internal/cache"
	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/store/memory"
)

func seededStore() *memory.Store {
	s := memory.New()
	s.SeedPermission("payments.view", "View Payments")
	s.SeedPermission("payments.manage", "Manage Payments")
	s.SeedPermission("projects.view", "View Projects")
	s.SeedRole(1, "Finance Officer")
	s.GrantRolePermission(1, "payments.view")
	s.GrantRolePermission(1, "payments.manage")
	return s
}

func newTestResolver(s *memory.Store) *Resolver {
	return NewResolver(s, cache.NewMemory("test:", time.Minute), time.Minute)
}

func userWithRole(id string, roleID int64) *types.User {
	return &types.User{ID: id, RoleID: &roleID}
}

func TestEffectivePermissionsUnion(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	u := userWithRole("u1", 1)
	require.NoError(t, s.CreateUser(ctx, &types.User{ID: "u1", Name: "A", Email: "a@x.test", PasswordHash: "x"}))
	_, err := s.ReplaceUserPermissions(ctx, "u1", []string{"projects.view", "payments.view"})
	require.NoError(t, err)

	perms, err := newTestResolver(s).EffectivePermissions(ctx, u)
	require.NoError(t, err)
	// Unión de rol + directos, sin duplicados, ordenada.
	require.Equal(t, []string{"payments.manage", "payments.view", "projects.view"}, perms)
}

func TestEffectivePermissionsNoRole(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &types.User{ID: "u2", Name: "B", Email: "b@x.test", PasswordHash: "x"}))
	_, err := s.ReplaceUserPermissions(ctx, "u2", []string{"projects.view"})
	require.NoError(t, err)

	perms, err := newTestResolver(s).EffectivePermissions(ctx, &types.User{ID: "u2"})
	require.NoError(t, err)
	require.Equal(t, []string{"projects.view"}, perms)
}

func TestEffectivePermissionsEmpty(t *testing.T) {
	s := seededStore()
	perms, err := newTestResolver(s).EffectivePermissions(context.Background(), &types.User{ID: "nobody"})
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestHasFailsClosedOnUnknownKey(t *testing.T) {
	s := seededStore()
	r := newTestResolver(s)
	u := userWithRole("u1", 1)

	ok, err := r.Has(context.Background(), u, "nonexistent.key")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasGrantedAndDenied(t *testing.T) {
	s := seededStore()
	r := newTestResolver(s)
	u := userWithRole("u1", 1)
	ctx := context.Background()

	ok, err := r.Has(ctx, u, "payments.view")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.Has(ctx, u, "projects.view")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasAny(t *testing.T) {
	s := seededStore()
	r := newTestResolver(s)
	u := userWithRole("u1", 1)
	ctx := context.Background()

	ok, err := r.HasAny(ctx, u, "projects.view", "payments.manage")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.HasAny(ctx, u, "projects.view")
	require.NoError(t, err)
	require.False(t, ok)

	// Solo claves fuera de catálogo: fail closed.
	ok, err = r.HasAny(ctx, u, "nope.one", "nope.two")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = r.HasAny(ctx, u)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvalidateRefreshesCatalog(t *testing.T) {
	s := seededStore()
	r := newTestResolver(s)
	u := userWithRole("u1", 1)
	ctx := context.Background()

	// Calienta el cache del catálogo.
	ok, err := r.Has(ctx, u, "payments.view")
	require.NoError(t, err)
	require.True(t, ok)

	// Clave nueva en el catálogo + grant: visible tras invalidar.
	s.SeedPermission("pos.view", "View Purchase Orders")
	s.GrantRolePermission(1, "pos.view")
	r.Invalidate(ctx)

	ok, err = r.Has(ctx, u, "pos.view")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReplaceRolePermissionsDropsBogusKeys(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	written, err := s.ReplaceRolePermissions(ctx, 1, []string{"payments.view", "bogus.key"})
	require.NoError(t, err)
	require.Equal(t, []string{"payments.view"}, written)

	keys, err := s.GetRolePermissionKeys(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"payments.view"}, keys)
}
