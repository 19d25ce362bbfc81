package pg

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/sbfportal/internal/domain/types"
)

// ---------- LECTURAS ----------

func (s *Store) ListRoles(ctx context.Context) ([]types.Role, error) {
	const q = `SELECT id, name FROM roles ORDER BY id`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Role
	for rows.Next() {
		var r types.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRoleByID(ctx context.Context, id int64) (*types.Role, error) {
	const q = `SELECT id, name FROM roles WHERE id = $1`
	var r types.Role
	if err := s.pool.QueryRow(ctx, q, id).Scan(&r.ID, &r.Name); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*types.Role, error) {
	const q = `SELECT id, name FROM roles WHERE name = $1`
	var r types.Role
	if err := s.pool.QueryRow(ctx, q, name).Scan(&r.ID, &r.Name); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]types.Permission, error) {
	const q = `SELECT key, label FROM permissions ORDER BY key`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Permission
	for rows.Next() {
		var p types.Permission
		if err := rows.Scan(&p.Key, &p.Label); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetRolePermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	const q = `
SELECT permission_key
FROM role_permissions
WHERE role_id = $1
ORDER BY permission_key`
	return s.queryKeys(ctx, q, roleID)
}

func (s *Store) GetUserPermissionKeys(ctx context.Context, userID string) ([]string, error) {
	const q = `
SELECT permission_key
FROM user_permissions
WHERE user_id = $1
ORDER BY permission_key`
	return s.queryKeys(ctx, q, userID)
}

func (s *Store) queryKeys(ctx context.Context, q string, arg any) ([]string, error) {
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// ---------- ESCRITURAS ----------

// ReplaceRolePermissions reemplaza el set completo dentro de una transacción:
// borra todo, inserta solo las claves que existen en el catálogo y devuelve
// el subconjunto efectivamente escrito. Claves desconocidas se descartan.
func (s *Store) ReplaceRolePermissions(ctx context.Context, roleID int64, keys []string) ([]string, error) {
	if _, err := s.GetRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.replaceGrants(ctx, `role_permissions`, `role_id`, roleID, keys)
}

func (s *Store) ReplaceUserPermissions(ctx context.Context, userID string, keys []string) ([]string, error) {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.replaceGrants(ctx, `user_permissions`, `user_id`, userID, keys)
}

func (s *Store) replaceGrants(ctx context.Context, table, ownerCol string, owner any, keys []string) ([]string, error) {
	valid, err := s.filterKnownKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE `+ownerCol+` = $1`, owner); err != nil {
		return nil, err
	}
	if len(valid) > 0 {
		b := &pgx.Batch{}
		for _, k := range valid {
			b.Queue(`INSERT INTO `+table+` (`+ownerCol+`, permission_key) VALUES ($1, $2)`, owner, k)
		}
		br := tx.SendBatch(ctx, b)
		for range valid {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return nil, mapErr(err)
			}
		}
		if err := br.Close(); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return valid, nil
}

// filterKnownKeys normaliza, de-duplica y cruza contra el catálogo.
func (s *Store) filterKnownKeys(ctx context.Context, keys []string) ([]string, error) {
	clean := make([]string, 0, len(keys))
	seen := map[string]struct{}{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		clean = append(clean, k)
	}
	if len(clean) == 0 {
		return nil, nil
	}

	const q = `SELECT key FROM permissions WHERE key = ANY($1) ORDER BY key`
	rows, err := s.pool.Query(ctx, q, clean)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var valid []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		valid = append(valid, k)
	}
	return valid, rows.Err()
}
