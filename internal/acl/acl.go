// Package acl resuelve permisos efectivos: la unión de lo que otorga el
// rol del usuario más sus grants directos, validada contra el catálogo.
// Claves fuera del catálogo nunca autorizan (fail closed).
package acl

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/sbfportal/internal/cache"
	"github.com/dropDatabas3/sbfportal/internal/domain/types"
	"github.com/dropDatabas3/sbfportal/internal/store"
)

const catalogKey = "acl:catalog"

// Resolver calcula permisos efectivos. El catálogo se cachea con TTL corto
// y singleflight colapsa cargas concurrentes tras una invalidación.
type Resolver struct {
	repo  store.Repository
	cache cache.Client
	sf    singleflight.Group
	ttl   time.Duration
}

func NewResolver(repo store.Repository, c cache.Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Resolver{repo: repo, cache: c, ttl: ttl}
}

// EffectivePermissions devuelve la unión ordenada y sin duplicados de los
// permisos del rol y los directos del usuario. Un usuario sin rol solo
// conserva sus grants directos.
func (r *Resolver) EffectivePermissions(ctx context.Context, user *types.User) ([]string, error) {
	catalog, err := r.catalog(ctx)
	if err != nil {
		return nil, err
	}

	set := map[string]struct{}{}
	if user.RoleID != nil {
		roleKeys, err := r.repo.GetRolePermissionKeys(ctx, *user.RoleID)
		if err != nil {
			return nil, err
		}
		for _, k := range roleKeys {
			if _, ok := catalog[k]; ok {
				set[k] = struct{}{}
			}
		}
	}
	direct, err := r.repo.GetUserPermissionKeys(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, k := range direct {
		if _, ok := catalog[k]; ok {
			set[k] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Has responde si el usuario tiene la clave. Claves desconocidas para el
// catálogo devuelven false sin error.
func (r *Resolver) Has(ctx context.Context, user *types.User, key string) (bool, error) {
	catalog, err := r.catalog(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := catalog[key]; !ok {
		return false, nil
	}
	perms, err := r.EffectivePermissions(ctx, user)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == key {
			return true, nil
		}
	}
	return false, nil
}

// HasAny responde si el usuario tiene al menos una de las claves.
func (r *Resolver) HasAny(ctx context.Context, user *types.User, keys ...string) (bool, error) {
	catalog, err := r.catalog(ctx)
	if err != nil {
		return false, err
	}
	wanted := map[string]struct{}{}
	for _, k := range keys {
		if _, ok := catalog[k]; ok {
			wanted[k] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return false, nil
	}
	perms, err := r.EffectivePermissions(ctx, user)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if _, ok := wanted[p]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate descarta el catálogo cacheado. Se llama después de mutar el
// catálogo o los grants desde el panel de administración.
func (r *Resolver) Invalidate(ctx context.Context) {
	_ = r.cache.Delete(ctx, catalogKey)
}

func (r *Resolver) catalog(ctx context.Context) (map[string]struct{}, error) {
	if raw, err := r.cache.Get(ctx, catalogKey); err == nil {
		var keys []string
		if json.Unmarshal([]byte(raw), &keys) == nil {
			return toSet(keys), nil
		}
	}

	v, err, _ := r.sf.Do(catalogKey, func() (any, error) {
		perms, err := r.repo.ListPermissions(ctx)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(perms))
		for _, p := range perms {
			keys = append(keys, p.Key)
		}
		if b, err := json.Marshal(keys); err == nil {
			_ = r.cache.Set(ctx, catalogKey, string(b), r.ttl)
		}
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return toSet(v.([]string)), nil
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
