package dto

// ---------- Admin ----------

type SetRoleRequest struct {
	RoleID int64 `json:"role_id"`
}

type ReplacePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// ReplacePermissionsResponse devuelve el subconjunto efectivamente
// escrito; las claves fuera del catálogo se descartan en silencio.
type ReplacePermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

// ---------- Workflow ----------

type CreateClaimRequest struct {
	PolicyNo    string  `json:"policy_no"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type InitiatePaymentRequest struct {
	Type   string  `json:"type"`
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

type InitiatePaymentResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}
