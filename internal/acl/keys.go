package acl

// Claves del catálogo de permisos. El catálogo vive en la tabla
// permissions; estas constantes solo evitan strings sueltos en las rutas.
const (
	PermAdminAccess    = "admin.access"
	PermUsersView      = "users.view"
	PermUsersManage    = "users.manage"
	PermRolesView      = "roles.view"
	PermRolesManage    = "roles.manage"
	PermPaymentsView   = "payments.view"
	PermPaymentsManage = "payments.manage"
	PermPOsView        = "pos.view"
	PermPOsManage      = "pos.manage"
	PermProjectsView   = "projects.view"
	PermProjectsManage = "projects.manage"
)
