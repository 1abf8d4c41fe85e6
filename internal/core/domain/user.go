package domain

import (
	"encoding/json"
	"time"
)

// School is an organization a user belongs to or, for teachers, may work in.
type School struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// User models an authenticated actor in the portal.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	Tenant         string    `json:"tenant,omitempty"`
	TenantName     string    `json:"tenant_name,omitempty"`
	TenantCode     string    `json:"tenant_code,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	TeacherSchools []School  `json:"teacher_schools,omitempty"`
	IsActive       bool      `json:"is_active"`
	DateJoined     time.Time `json:"date_joined"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// AssignedSchool reports whether schoolID is one of the teacher's schools.
func (u User) AssignedSchool(schoolID string) bool {
	for _, s := range u.TeacherSchools {
		if s.ID == schoolID {
			return true
		}
	}
	return false
}

// UnmarshalJSON normalizes the role at decode time so a snapshot read back
// from storage or a backend payload never carries an unrecognized role.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		Role string `json:"role"`
		*alias
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.Role, _ = ParseRoleOrDefault(aux.Role)
	return nil
}
