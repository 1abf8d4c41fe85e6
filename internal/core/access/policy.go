// Package access holds the static route access policy: which home path each
// role lands on, which path prefixes it may enter, and how a navigation is
// resolved into render or redirect. Everything here is pure.
package access

import (
	"path"
	"strings"

	"github.com/futurefundi/portal/internal/core/domain"
)

const (
	// PublicRoot is reachable by every role and matches only itself.
	PublicRoot = "/"
	// LoginPath is where unauthenticated navigations are sent.
	LoginPath = "/login"
	// SchoolSelectPath lets a teacher with several schools pick one.
	SchoolSelectPath = "/teacher/select-school"
	// NextParam carries the originally requested path through login.
	NextParam = "next"
)

const (
	homeLearner   = "/student"
	homeTeacher   = "/teacher"
	homeParent    = "/parent"
	homeLeader    = "/leader"
	homeSchool    = "/school"
	homeAdmin     = "/admin"
	homeDataEntry = "/admin/curriculum-entry"
)

// HomePath returns the landing route for r. ok is false only for values
// outside the enumerated role set.
func HomePath(r domain.Role) (home string, ok bool) {
	switch r {
	case domain.RoleLearner:
		return homeLearner, true
	case domain.RoleTeacher:
		return homeTeacher, true
	case domain.RoleParent:
		return homeParent, true
	case domain.RoleLeader:
		return homeLeader, true
	case domain.RoleSchool:
		return homeSchool, true
	case domain.RoleAdmin:
		return homeAdmin, true
	case domain.RoleDataEntry:
		return homeDataEntry, true
	}
	return "", false
}

// AllowedPrefixes returns the path prefixes r may navigate into. The result
// is a fresh slice. Unknown roles get nothing.
func AllowedPrefixes(r domain.Role) []string {
	switch r {
	case domain.RoleLearner:
		return []string{homeLearner, PublicRoot}
	case domain.RoleTeacher:
		return []string{homeTeacher, PublicRoot}
	case domain.RoleParent:
		return []string{homeParent, PublicRoot}
	case domain.RoleLeader:
		return []string{homeLeader, PublicRoot}
	case domain.RoleSchool:
		return []string{homeSchool, homeLeader, PublicRoot}
	case domain.RoleAdmin:
		return []string{homeAdmin, homeLeader, homeTeacher, homeParent, homeLearner, homeSchool, PublicRoot}
	case domain.RoleDataEntry:
		return []string{homeDataEntry, PublicRoot}
	}
	return nil
}

// DisplayName is the human label for r.
func DisplayName(r domain.Role) string {
	switch r {
	case domain.RoleLearner:
		return "Student"
	case domain.RoleTeacher:
		return "Teacher"
	case domain.RoleParent:
		return "Parent"
	case domain.RoleLeader:
		return "Leader"
	case domain.RoleSchool:
		return "School Admin"
	case domain.RoleAdmin:
		return "Administrator"
	case domain.RoleDataEntry:
		return "Data Entry"
	}
	return "User"
}

// DashboardRoute resolves an untrusted role string to a home path. Unknown
// roles land on the learner home.
func DashboardRoute(rawRole string) string {
	r, _ := domain.ParseRoleOrDefault(rawRole)
	home, _ := HomePath(r)
	return home
}

// CanAccess reports whether r may navigate to requestedPath.
func CanAccess(r domain.Role, requestedPath string) bool {
	p := Clean(requestedPath)
	for _, prefix := range AllowedPrefixes(r) {
		if hasPathPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// CanAccessRaw is CanAccess for an untrusted role string. Unknown roles are
// checked as the default role.
func CanAccessRaw(rawRole, requestedPath string) bool {
	r, _ := domain.ParseRoleOrDefault(rawRole)
	return CanAccess(r, requestedPath)
}

// Clean normalizes a request path so ".." and duplicate slashes cannot be
// used to step outside an allowed prefix.
func Clean(p string) string {
	if p == "" {
		return PublicRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// hasPathPrefix matches on whole segments. The public root only matches
// itself.
func hasPathPrefix(p, prefix string) bool {
	if prefix == PublicRoot {
		return p == PublicRoot
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

// Rule is one row of the policy table.
type Rule struct {
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"display_name"`
	Home        string      `json:"home"`
	Allowed     []string    `json:"allowed_prefixes"`
}

// Table returns the whole policy, one rule per role.
func Table() []Rule {
	roles := domain.Roles()
	rules := make([]Rule, 0, len(roles))
	for _, r := range roles {
		home, _ := HomePath(r)
		rules = append(rules, Rule{
			Role:        r,
			DisplayName: DisplayName(r),
			Home:        home,
			Allowed:     AllowedPrefixes(r),
		})
	}
	return rules
}
