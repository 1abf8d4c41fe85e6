package domain

import (
	"fmt"
	"strings"
)

// Role is the kind of account a user holds. The set is closed.
type Role string

const (
	RoleLearner   Role = "learner"
	RoleTeacher   Role = "teacher"
	RoleParent    Role = "parent"
	RoleLeader    Role = "leader"
	RoleSchool    Role = "school"
	RoleAdmin     Role = "admin"
	RoleDataEntry Role = "data_entry"
)

// DefaultRole is the lowest-privilege role, applied when an external role
// string cannot be parsed.
const DefaultRole = RoleLearner

// Roles returns every role in a stable order.
func Roles() []Role {
	return []Role{
		RoleLearner,
		RoleTeacher,
		RoleParent,
		RoleLeader,
		RoleSchool,
		RoleAdmin,
		RoleDataEntry,
	}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleTeacher, RoleParent, RoleLeader, RoleSchool, RoleAdmin, RoleDataEntry:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole converts an untrusted role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedRole, s)
	}
	return r, nil
}

// ParseRoleOrDefault is the single fallback boundary for role strings coming
// from outside the process. Unknown values collapse to DefaultRole; the
// boolean reports whether the input was recognized.
func ParseRoleOrDefault(s string) (Role, bool) {
	r, err := ParseRole(s)
	if err != nil {
		return DefaultRole, false
	}
	return r, true
}
