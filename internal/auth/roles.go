package auth

import "fmt"

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleRoot is the bootstrap account. Only root may create, rename,
	// re-role or promote other root accounts.
	RoleRoot Role = "root"

	// RoleAdmin manages user accounts and has every teacher and student
	// capability.
	RoleAdmin Role = "admin"

	// RoleTeacher and RoleStudent are siblings: neither satisfies a guard
	// written for the other.
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"

	// RoleUnassigned is the default for new accounts. It is a member of
	// no allow-set and is rejected by every guard.
	RoleUnassigned Role = "unassigned"
)

// AllRoles lists every role, highest tier first.
var AllRoles = []Role{RoleRoot, RoleAdmin, RoleTeacher, RoleStudent, RoleUnassigned}

// roleTier places each role on a level of the hierarchy. Roles on the same
// level are incomparable unless equal.
var roleTier = map[Role]int{
	RoleRoot:       3,
	RoleAdmin:      2,
	RoleTeacher:    1,
	RoleStudent:    1,
	RoleUnassigned: 0,
}

// IsValid returns true if r is one of the enumerated roles.
func (r Role) IsValid() bool {
	_, ok := roleTier[r]
	return ok
}

// Dominates reports whether r is at or above other in the role hierarchy:
// root > admin > {teacher, student} > unassigned.
func (r Role) Dominates(other Role) bool {
	rt, ok := roleTier[r]
	if !ok {
		return false
	}
	ot, ok := roleTier[other]
	if !ok {
		return false
	}
	return r == other || rt > ot
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a stored or submitted value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// RoleChecker authorises an already-authenticated user against a fixed
// allow-set of roles. The zero value allows nobody.
//
// A RoleChecker knows nothing about tokens or sessions; it must only be
// applied to a user resolved by SessionManager.Validate.
type RoleChecker struct {
	allowed map[Role]struct{}
}

// NewRoleChecker builds a guard from an allow-set. RoleUnassigned and
// unknown roles are dropped.
func NewRoleChecker(roles ...Role) RoleChecker {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if r == RoleUnassigned || !r.IsValid() {
			continue
		}
		allowed[r] = struct{}{}
	}
	return RoleChecker{allowed: allowed}
}

// AtLeast builds a guard admitting every role that dominates min.
func AtLeast(minRole Role) RoleChecker {
	var roles []Role
	for _, r := range AllRoles {
		if r.Dominates(minRole) {
			roles = append(roles, r)
		}
	}
	return NewRoleChecker(roles...)
}

// Allows reports whether role is in the allow-set.
func (c RoleChecker) Allows(role Role) bool {
	_, ok := c.allowed[role]
	return ok
}

// Roles returns the allow-set in hierarchy order.
func (c RoleChecker) Roles() []Role {
	out := make([]Role, 0, len(c.allowed))
	for _, r := range AllRoles {
		if c.Allows(r) {
			out = append(out, r)
		}
	}
	return out
}

// Check returns user unchanged if its role is allowed, ErrForbidden otherwise.
func (c RoleChecker) Check(user *User) (*User, error) {
	if user == nil {
		return nil, ErrForbidden
	}
	if !c.Allows(user.Role) {
		return nil, fmt.Errorf("%w: role %q not in %v", ErrForbidden, user.Role, c.Roles())
	}
	return user, nil
}

// Standard guards.
var (
	AllowRoot       = NewRoleChecker(RoleRoot)
	AllowAdmin      = NewRoleChecker(RoleRoot, RoleAdmin)
	AllowTeacher    = NewRoleChecker(RoleRoot, RoleAdmin, RoleTeacher)
	AllowStudent    = NewRoleChecker(RoleRoot, RoleAdmin, RoleStudent)
	AllowAuthorized = NewRoleChecker(RoleRoot, RoleAdmin, RoleTeacher, RoleStudent)
)

// CanManage reports whether actor may modify an account holding target.
// Root accounts are managed only by root.
func CanManage(actor, target Role) bool {
	if target == RoleRoot {
		return actor == RoleRoot
	}
	return AllowAdmin.Allows(actor)
}

// CanAssign reports whether actor may grant role to an account.
func CanAssign(actor, role Role) bool {
	if !role.IsValid() {
		return false
	}
	if role == RoleRoot {
		return actor == RoleRoot
	}
	return AllowAdmin.Allows(actor)
}
