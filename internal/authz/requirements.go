package authz

// アプリケーションロール名。DiscordロールIDからDISCORD_ROLE_MAPで対応付ける。
const (
	RoleCarabinero = "carabinero"
	RolePDI        = "pdi"
	RoleMuni       = "muni"
)

// ルートごとのロール要件。
var (
	VehicleRead  = Roles(RoleCarabinero, RolePDI, RoleMuni)
	VehicleWrite = Roles(RoleCarabinero, RoleMuni)
	PersonRead   = Roles(RoleCarabinero, RolePDI)
	PersonWrite  = Roles(RoleCarabinero, RolePDI)
	PersonDelete = Roles(RolePDI)
	// Authenticated はログインのみを要求する。
	Authenticated = Roles()
)
