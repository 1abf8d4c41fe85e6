package access

import (
	"net/url"
	"strings"

	"github.com/futurefundi/portal/internal/core/domain"
)

// Outcome is the result of evaluating one navigation.
type Outcome int

const (
	Render Outcome = iota
	RedirectLogin
	RedirectHome
	RedirectSchoolSelect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	case RedirectSchoolSelect:
		return "redirect_school_select"
	}
	return "unknown"
}

// Subject is what the guard knows about the caller for one navigation.
type Subject struct {
	Authenticated  bool
	Role           domain.Role
	Schools        []domain.School // teacher's assigned schools
	SelectedSchool string
}

// Decision tells the guard what to do with a navigation. Location is empty
// when Outcome is Render.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide evaluates a navigation to requestedPath. It is recomputed on every
// request; nothing about a previous decision is remembered.
func Decide(s Subject, requestedPath string) Decision {
	p := Clean(requestedPath)

	if !s.Authenticated {
		return Decision{Outcome: RedirectLogin, Location: LoginLocation(p)}
	}

	if !CanAccess(s.Role, p) {
		home, ok := HomePath(s.Role)
		if !ok {
			home, _ = HomePath(domain.DefaultRole)
		}
		return Decision{Outcome: RedirectHome, Location: home}
	}

	if needsSchoolSelection(s, p) {
		return Decision{Outcome: RedirectSchoolSelect, Location: SchoolSelectPath}
	}

	return Decision{Outcome: Render}
}

func needsSchoolSelection(s Subject, p string) bool {
	if s.Role != domain.RoleTeacher || !hasPathPrefix(p, homeTeacher) {
		return false
	}
	if hasPathPrefix(p, SchoolSelectPath) || len(s.Schools) <= 1 {
		return false
	}
	for _, school := range s.Schools {
		if school.ID == s.SelectedSchool {
			return false
		}
	}
	return true
}

// LoginLocation builds the login redirect that remembers requestedPath.
func LoginLocation(requestedPath string) string {
	p := Clean(requestedPath)
	if p == PublicRoot || p == LoginPath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{NextParam: {p}}.Encode()
}

// ReplayTarget picks where to send r right after login: the remembered path
// when it is a local path r may enter, otherwise r's home.
func ReplayTarget(r domain.Role, next string) string {
	home, ok := HomePath(r)
	if !ok {
		home, _ = HomePath(domain.DefaultRole)
	}
	if !isLocalPath(next) {
		return home
	}
	p := Clean(next)
	if p == PublicRoot || p == LoginPath || !CanAccess(r, p) {
		return home
	}
	return p
}

// isLocalPath rejects absolute and scheme-relative URLs so the replay
// cannot become an open redirect.
func isLocalPath(next string) bool {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return false
	}
	if strings.ContainsAny(next, "\\") {
		return false
	}
	u, err := url.Parse(next)
	return err == nil && u.Scheme == "" && u.Host == ""
}
