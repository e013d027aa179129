package model

// Role names stored in the roles table.
const (
	RoleNameSystemAdmin = "ADMIN_GENERAL"
	RoleNameTenantAdmin = "ADMIN_CONDOMINIO"
)

// TenantAdminRoleID is the fixed id of ADMIN_CONDOMINIO.
const TenantAdminRoleID = 3

// RoleAssignment is a row of usuarios_roles_fraccionamiento joined with
// its role name.
type RoleAssignment struct {
	ID            string  `json:"id"`
	UserID        string  `json:"usuario_id"`
	TenantID      *string `json:"fraccionamiento_id"`
	RoleID        int     `json:"rol_id"`
	RoleName      string  `json:"rol"`
	IsPrimary     bool    `json:"es_principal"`
	AccessEnabled bool    `json:"acceso_habilitado"`
}

// RoleFlags are derived independently; precedence is applied by Classify.
type RoleFlags struct {
	IsSystemAdmin bool `json:"is_system_admin"`
	IsTenantAdmin bool `json:"is_tenant_admin"`
}

func (f RoleFlags) IsAdmin() bool {
	return f.IsSystemAdmin || f.IsTenantAdmin
}

type RoleClassification string

const (
	ClassificationSystemAdmin  RoleClassification = "SYSTEM_ADMIN"
	ClassificationTenantAdmin  RoleClassification = "TENANT_ADMIN"
	ClassificationUnclassified RoleClassification = "UNCLASSIFIED"
)
