package rbac

// Role names. Keep these stable; they are part of the token contract.
const (
	RoleOwner      = "owner"
	RoleAgent      = "agent"
	RoleAnalyst    = "analyst"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// ViewRoles may read console state.
func ViewRoles() []string {
	return []string{RoleOwner, RoleAgent, RoleAnalyst}
}

// CommandRoles may send messages, start calls and upload leads.
func CommandRoles() []string {
	return []string{RoleOwner, RoleAgent}
}

func IsKnownRole(role string) bool {
	switch role {
	case RoleOwner, RoleAgent, RoleAnalyst, RoleSuperAdmin:
		return true
	}
	return false
}
