package service

import "strings"

// Actor roles.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Actor is the authenticated caller. It is passed explicitly into every
// operation that scopes data by user.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) normalizedRole() string {
	return strings.ToLower(strings.TrimSpace(a.Role))
}

// IsAdmin reports whether the actor can act on any source.
func (a Actor) IsAdmin() bool {
	return a.normalizedRole() == RoleAdmin
}

// IsStudent reports whether the actor is a student.
func (a Actor) IsStudent() bool {
	return a.normalizedRole() == RoleStudent
}

// IsStaff reports whether the actor may author or grade work.
func (a Actor) IsStaff() bool {
	role := a.normalizedRole()
	return role == RoleAdmin || role == RoleTeacher
}
