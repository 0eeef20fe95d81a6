package domain

// Role identifies what a member may do inside a family.
type Role string

const (
	// RoleOwner created the family and manages everything in it.
	RoleOwner Role = "owner"
	// RoleGuardian records memories and children and can invite viewers.
	RoleGuardian Role = "guardian"
	// RoleViewer reads memories and milestones but changes nothing.
	RoleViewer Role = "viewer"
)

// ParseRole validates a role string.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleOwner, RoleGuardian, RoleViewer:
		return Role(value), true
	}
	return "", false
}

// CanInvite reports whether the role may issue invites for the target role.
// Owners invite anyone; guardians invite viewers only.
func (r Role) CanInvite(target Role) bool {
	switch r {
	case RoleOwner:
		return true
	case RoleGuardian:
		return target == RoleViewer
	}
	return false
}

// CanManageChildren reports whether the role may add or edit child records.
func (r Role) CanManageChildren() bool {
	return r == RoleOwner || r == RoleGuardian
}

// CanRecordMemories reports whether the role may capture memories.
func (r Role) CanRecordMemories() bool {
	return r == RoleOwner || r == RoleGuardian
}
