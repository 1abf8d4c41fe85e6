package access

import (
	"testing"

	"github.com/futurefundi/portal/internal/core/domain"
)

func TestDecide_TeacherOnParentRedirectsHome(t *testing.T) {
	d := Decide(Subject{Authenticated: true, Role: domain.RoleTeacher}, "/parent")
	if d.Outcome != RedirectHome || d.Location != "/teacher" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDecide_AdminOnStudentRenders(t *testing.T) {
	d := Decide(Subject{Authenticated: true, Role: domain.RoleAdmin}, "/student")
	if d.Outcome != Render || d.Location != "" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDecide_UnauthenticatedRemembersPath(t *testing.T) {
	d := Decide(Subject{}, "/leader")
	if d.Outcome != RedirectLogin {
		t.Fatalf("expected login redirect, got %v", d.Outcome)
	}
	if d.Location != "/login?next=%2Fleader" {
		t.Fatalf("unexpected location %q", d.Location)
	}
}

func TestDecide_UnauthenticatedIgnoresRole(t *testing.T) {
	d := Decide(Subject{Role: domain.RoleAdmin}, "/admin")
	if d.Outcome != RedirectLogin {
		t.Fatalf("expected login redirect, got %v", d.Outcome)
	}
}

func TestDecide_TeacherSchoolSelection(t *testing.T) {
	schools := []domain.School{{ID: "s1"}, {ID: "s2"}}

	cases := []struct {
		name     string
		subject  Subject
		path     string
		want     Outcome
		location string
	}{
		{"no selection", Subject{Authenticated: true, Role: domain.RoleTeacher, Schools: schools}, "/teacher/classes", RedirectSchoolSelect, SchoolSelectPath},
		{"stale selection", Subject{Authenticated: true, Role: domain.RoleTeacher, Schools: schools, SelectedSchool: "gone"}, "/teacher", RedirectSchoolSelect, SchoolSelectPath},
		{"valid selection", Subject{Authenticated: true, Role: domain.RoleTeacher, Schools: schools, SelectedSchool: "s2"}, "/teacher", Render, ""},
		{"selection page itself", Subject{Authenticated: true, Role: domain.RoleTeacher, Schools: schools}, SchoolSelectPath, Render, ""},
		{"single school", Subject{Authenticated: true, Role: domain.RoleTeacher, Schools: schools[:1]}, "/teacher", Render, ""},
		{"public root", Subject{Authenticated: true, Role: domain.RoleTeacher, Schools: schools}, "/", Render, ""},
		{"admin on teacher area", Subject{Authenticated: true, Role: domain.RoleAdmin, Schools: schools}, "/teacher", Render, ""},
	}
	for _, tc := range cases {
		d := Decide(tc.subject, tc.path)
		if d.Outcome != tc.want || d.Location != tc.location {
			t.Fatalf("%s: got %+v", tc.name, d)
		}
	}
}

func TestDecide_RoleChangeIsReflectedImmediately(t *testing.T) {
	s := Subject{Authenticated: true, Role: domain.RoleAdmin}
	if Decide(s, "/parent").Outcome != Render {
		t.Fatalf("admin should render /parent")
	}
	s.Role = domain.RoleLearner
	if d := Decide(s, "/parent"); d.Outcome != RedirectHome || d.Location != "/student" {
		t.Fatalf("learner should be sent home, got %+v", d)
	}
}

func TestLoginLocation(t *testing.T) {
	cases := map[string]string{
		"/":                "/login",
		"/login":           "/login",
		"/teacher/classes": "/login?next=%2Fteacher%2Fclasses",
	}
	for in, want := range cases {
		if got := LoginLocation(in); got != want {
			t.Fatalf("LoginLocation(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReplayTarget(t *testing.T) {
	cases := []struct {
		role domain.Role
		next string
		want string
	}{
		{domain.RoleLeader, "/leader/reports", "/leader/reports"},
		{domain.RoleLeader, "/admin", "/leader"},
		{domain.RoleLeader, "", "/leader"},
		{domain.RoleLeader, "https://evil.example/leader", "/leader"},
		{domain.RoleLeader, "//evil.example/leader", "/leader"},
		{domain.RoleLeader, "/login", "/leader"},
		{domain.RoleAdmin, "/student", "/student"},
		{domain.Role("ghost"), "/student", "/student"},
	}
	for _, tc := range cases {
		if got := ReplayTarget(tc.role, tc.next); got != tc.want {
			t.Fatalf("ReplayTarget(%q, %q) = %q, want %q", tc.role, tc.next, got, tc.want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if RedirectHome.String() != "redirect_home" || Outcome(42).String() != "unknown" {
		t.Fatalf("unexpected outcome labels")
	}
}
