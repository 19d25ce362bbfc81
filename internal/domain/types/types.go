// Package types define las entidades del dominio del portal.
package types

import "time"

// User es un principal del portal.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleID       *int64     `json:"-"`
	Role         *Role      `json:"role,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DisabledAt   *time.Time `json:"-"`
}

// Role es un conjunto nombrado de permisos.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Permission es una capability atómica. La key es la identidad primaria;
// keys desconocidas se rechazan en todos lados.
type Permission struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// OtpToken es un challenge de login de un solo uso.
// Puede haber varias filas sin consumir por usuario: la verificación
// siempre apunta a la más reciente sin consumir.
type OtpToken struct {
	ID         int64
	UserID     string
	Code       string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Consumed indica si el token ya fue usado (estado terminal).
func (t *OtpToken) Consumed() bool { return t.ConsumedAt != nil }

// RefreshToken es la credencial de rotación. Nunca se guarda el valor crudo,
// solo su hash; un token se usa a lo sumo una vez.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Revoked indica si el token fue revocado (rotado o logout).
func (t *RefreshToken) Revoked() bool { return t.RevokedAt != nil }

// UserSummary es la vista pública de un usuario: lo único que ven los
// handlers downstream y el cliente.
type UserSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        *Role    `json:"role"`
	Permissions []string `json:"permissions"`
}

// =================================================================================
// WORKFLOW (colaboradores externos del auth core)
// =================================================================================

// Policy es una póliza de seguro de un miembro.
type Policy struct {
	ID         int64      `json:"id"`
	PolicyNo   string     `json:"policy_no"`
	Product    string     `json:"product"`
	Status     string     `json:"status"`
	SumAssured float64    `json:"sum_assured"`
	Premium    float64    `json:"premium"`
	PeriodFrom *time.Time `json:"period_from,omitempty"`
	PeriodTo   *time.Time `json:"period_to,omitempty"`
	UserID     string     `json:"-"`
}

// Claim es un reclamo presentado por un miembro.
type Claim struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	PolicyNo    string    `json:"policy_no"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// PurchaseOrder es una orden de compra administrativa.
type PurchaseOrder struct {
	ID        int64     `json:"id"`
	PONumber  string    `json:"po_number"`
	Vendor    string    `json:"vendor"`
	Project   string    `json:"project"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Project es un proyecto con presupuesto y tareas.
type Project struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Budget    float64    `json:"budget"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// ProjectTask es una tarea dentro de un proyecto.
type ProjectTask struct {
	ID               int64      `json:"id"`
	ProjectID        int64      `json:"project_id"`
	Description      string     `json:"description"`
	PercentageWeight float64    `json:"percentage_weight"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	IsComplete       bool       `json:"is_complete"`
	AssignedTo       *string    `json:"assigned_to,omitempty"`
}

// Payment es un pago recibido, ligado opcionalmente a una invoice.
type Payment struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	Type      string    `json:"type"`
	Method    string    `json:"method"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	InvoiceID *int64    `json:"invoice_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NextOfKin es un beneficiario declarado por un miembro.
type NextOfKin struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"-"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary agrupa los contadores del dashboard administrativo.
type Summary struct {
	Users          int64 `json:"users"`
	Payments       int64 `json:"payments"`
	PurchaseOrders int64 `json:"purchase_orders"`
	Projects       int64 `json:"projects"`
}

// AuditLog registra cada mutación de workflow con su actor.
type AuditLog struct {
	ID         int64     `json:"id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Payload    []byte    `json:"payload,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
