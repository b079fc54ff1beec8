package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleKiosk        = "kiosk"
	RoleReceptionist = "receptionist"
	RoleApp          = "app"
	RoleAdmin        = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
