package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/sbfportal/internal/config"
	"github.com/dropDatabas3/sbfportal/internal/security/password"
)

// Catálogo de permisos del portal.
var permissionCatalog = [][2]string{
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

var roleGrants = map[string][]string{
	// Admin recibe el catálogo completo en el loop de abajo.
	"Finance Officer": {
		"admin.access", "payments.view", "payments.manage",
		"pos.view", "pos.manage", "projects.view", "notifications.view",
	},
	"Project Manager": {
		"admin.access", "projects.view", "projects.manage",
		"pos.view", "notifications.view",
	},
	"Member": {},
}

type demoUser struct {
	name, email, role string
}

var demoUsers = []demoUser{
	{"ERIC THEURI MUGA", "admin@sbf.test", "Admin"},
	{"Finance User", "finance@sbf.test", "Finance Officer"},
	{"Project User", "pm@sbf.test", "Project Manager"},
	{"Member User", "member@sbf.test", "Member"},
}

func main() {
	configPath := flag.String("config", "configs/config.example.yaml", "ruta al YAML de configuración")
	demoPass := flag.String("password", "Pass123!", "password de los usuarios demo")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Storage.Driver != "pg" {
		log.Fatal("seed requiere storage.driver=pg")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	// Catálogo
	for _, p := range permissionCatalog {
		if _, err := pool.Exec(ctx,
			`INSERT INTO permissions(key, label) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
			p[0], p[1]); err != nil {
			log.Fatalf("permission %s: %v", p[0], err)
		}
	}

	// Roles
	roleIDs := map[string]int64{}
	for _, name := range []string{"Admin", "Finance Officer", "Project Manager", "Member"} {
		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO roles(name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, name).Scan(&id)
		if err != nil {
			log.Fatalf("role %s: %v", name, err)
		}
		roleIDs[name] = id
	}

	// Grants: Admin recibe todo, el resto su subconjunto.
	grant := func(roleID int64, key string) {
		if _, err := pool.Exec(ctx, `
			INSERT INTO role_permissions(role_id, permission_key) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, roleID, key); err != nil {
			log.Fatalf("grant %d %s: %v", roleID, key, err)
		}
	}
	for _, p := range permissionCatalog {
		grant(roleIDs["Admin"], p[0])
	}
	for role, keys := range roleGrants {
		for _, key := range keys {
			grant(roleIDs[role], key)
		}
	}

	// Usuarios demo
	hash, err := password.Hash(password.Default, *demoPass)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	var memberID string
	for _, u := range demoUsers {
		id := uuid.NewString()
		err := pool.QueryRow(ctx, `
			INSERT INTO users(id, name, email, password_hash, role_id)
			VALUES ($1, $2, lower($3), $4, $5)
			ON CONFLICT ((lower(email))) DO UPDATE SET role_id = EXCLUDED.role_id
			RETURNING id`, id, u.name, u.email, hash, roleIDs[u.role]).Scan(&id)
		if err != nil {
			log.Fatalf("user %s: %v", u.email, err)
		}
		if u.role == "Member" {
			memberID = id
		}
	}

	// Portfolio demo del miembro
	policies := [][]any{
		{"026/CEA/125078", "USOMIBORA (LUMPSUM - LIMITED)", "PAID UP", 153502.0, 2005.0, "2018-02-16", "2031-02-16"},
		{"026/CEA/134514", "ENDOWMENT ASSURANCE WITH PROFITS (TermBased)", "ACTIVE", 212625.0, 2005.0, "2018-07-04", "2028-07-04"},
	}
	for _, p := range policies {
		if _, err := pool.Exec(ctx, `
			INSERT INTO policies(policy_no, product, status, sum_assured, premium, period_from, period_to, user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (policy_no) DO NOTHING`,
			p[0], p[1], p[2], p[3], p[4], p[5], p[6], memberID); err != nil {
			log.Fatalf("policy %v: %v", p[0], err)
		}
	}

	fmt.Println("seed complete")
}
