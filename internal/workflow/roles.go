package workflow

import "fmt"

// Role is one of the three actor classes that may touch a case.
type Role string

const (
	// RoleOwner is the case owner (the ordering clinic); owner-gated rules
	// additionally require the actor to be the case's owner_id.
	RoleOwner Role = "owner"
	// RoleAdmin performs triage and assignment; no per-case check applies.
	RoleAdmin Role = "admin"
	// RoleStaff is the employee-like role; which staff member may act on a
	// given case depends on the capability sub-role and the assignment.
	RoleStaff Role = "staff"
)

// SubRole is the staff capability variant. Only meaningful when Role is
// RoleStaff; other roles carry SubRoleNone.
type SubRole string

const (
	SubRoleNone     SubRole = ""
	SubRoleDesigner SubRole = "designer"
	SubRoleReviewer SubRole = "reviewer"
	SubRoleBoth     SubRole = "both"
)

// ParseRole validates a raw role value from the boundary.
func ParseRole(v string) (Role, error) {
	switch Role(v) {
	case RoleOwner, RoleAdmin, RoleStaff:
		return Role(v), nil
	}
	return "", ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", v)}
}

// ParseSubRole validates a raw sub-role value from the boundary.
func ParseSubRole(v string) (SubRole, error) {
	switch SubRole(v) {
	case SubRoleNone, SubRoleDesigner, SubRoleReviewer, SubRoleBoth:
		return SubRole(v), nil
	}
	return "", ValidationError{Field: "sub_role", Reason: fmt.Sprintf("unknown sub-role %q", v)}
}

// Covers reports whether an actor holding s satisfies a rule that names
// required. SubRoleBoth satisfies either single capability.
func (s SubRole) Covers(required SubRole) bool {
	if required == SubRoleNone {
		return true
	}
	if s == SubRoleBoth {
		return required == SubRoleDesigner || required == SubRoleReviewer || required == SubRoleBoth
	}
	return s == required
}
