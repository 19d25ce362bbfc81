package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Cliente mínimo del Admin API. Autentica con el access token del portal.
type client struct {
	BaseURL   string
	Token     string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func (c *client) getCmd(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := c.do("GET", path, nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("status=%d body=%s", status, string(body))
			}
			c.print(status, body)
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var (
		baseURL = envOr("PORTAL_URL", "http://localhost:8080")
		token   = envOr("PORTAL_TOKEN", "")
		out     = envOr("PORTAL_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "CLI administrativa del SBF Portal (vía /api/admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("falta access token (flag --token o env PORTAL_TOKEN)")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del portal (env PORTAL_URL)")
	root.PersistentFlags().StringVar(&token, "token", token, "access token Bearer (env PORTAL_TOKEN)")
	root.PersistentFlags().StringVar(&out, "out", out, "formato de salida: json|text")

	cl := &client{BaseURL: baseURL, Token: token, OutFormat: out, HTTP: &http.Client{Timeout: 30 * time.Second}}

	root.AddCommand(
		cl.getCmd("summary", "Contadores del dashboard", "/api/admin/summary"),
		cl.getCmd("users", "Listar usuarios", "/api/admin/users"),
		cl.getCmd("roles", "Listar roles", "/api/admin/roles"),
		cl.getCmd("permissions", "Listar el catálogo de permisos", "/api/admin/permissions"),
		cl.getCmd("payments", "Listar pagos", "/api/admin/payments"),
		cl.getCmd("pos", "Listar órdenes de compra", "/api/admin/pos"),
		cl.getCmd("projects", "Listar proyectos", "/api/admin/projects"),
		cl.getCmd("audit", "Últimas entradas de auditoría", "/api/admin/audit"),
	)

	// set-role: asigna un rol a un usuario.
	var roleID int64
	setRoleCmd := &cobra.Command{
		Use:   "set-role <user-id>",
		Short: "Asignar rol a un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string]int64{"role_id": roleID})
			status, resp, err := cl.do("POST", "/api/admin/users/"+args[0]+"/role", body)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("status=%d body=%s", status, string(resp))
			}
			fmt.Println("ok")
			return nil
		},
	}
	setRoleCmd.Flags().Int64Var(&roleID, "role-id", 0, "id del rol a asignar")
	_ = setRoleCmd.MarkFlagRequired("role-id")
	root.AddCommand(setRoleCmd)

	// grant: reemplaza los permisos directos de un usuario.
	var perms []string
	grantCmd := &cobra.Command{
		Use:   "grant <user-id>",
		Short: "Reemplazar los permisos directos de un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string][]string{"permissions": perms})
			status, resp, err := cl.do("PUT", "/api/admin/users/"+args[0]+"/permissions", body)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("status=%d body=%s", status, string(resp))
			}
			cl.print(status, resp)
			return nil
		},
	}
	grantCmd.Flags().StringSliceVar(&perms, "perm", nil, "clave de permiso (repetible)")
	root.AddCommand(grantCmd)

	// role-perms: reemplaza los permisos de un rol.
	var rolePerms []string
	rolePermsCmd := &cobra.Command{
		Use:   "role-perms <role-id>",
		Short: "Reemplazar los permisos de un rol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(map[string][]string{"permissions": rolePerms})
			status, resp, err := cl.do("PUT", "/api/admin/roles/"+args[0]+"/permissions", body)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("status=%d body=%s", status, string(resp))
			}
			cl.print(status, resp)
			return nil
		},
	}
	rolePermsCmd.Flags().StringSliceVar(&rolePerms, "perm", nil, "clave de permiso (repetible)")
	root.AddCommand(rolePermsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
