package domain

import "time"

// AuthEventKind names a session lifecycle or routing event.
type AuthEventKind string

const (
	EventLogin          AuthEventKind = "login"
	EventLogout         AuthEventKind = "logout"
	EventRegister       AuthEventKind = "register"
	EventRefresh        AuthEventKind = "refresh"
	EventProfileUpdate  AuthEventKind = "profile_update"
	EventSchoolSelect   AuthEventKind = "school_select"
	EventRedirectLogin  AuthEventKind = "redirect_login"
	EventRedirectHome   AuthEventKind = "redirect_home"
	EventRedirectSchool AuthEventKind = "redirect_school_select"
	EventSessionExpired AuthEventKind = "session_expired"
)

// AuthEvent is one entry in the authentication audit trail.
type AuthEvent struct {
	Kind      AuthEventKind
	SessionID string
	UserID    string // optional
	Username  string // optional
	Role      Role   // optional
	Path      string // requested path, for guard decisions
	Location  string // redirect target, for guard decisions
	RemoteIP  string
	Timestamp time.Time
}
