package identity

import "errors"

// ErrForbidden is returned when an actor may not perform an operation.
var ErrForbidden = errors.New("forbidden")

// Role is the access role attached to a profile.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleStudent   Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleStudent:
		return true
	}
	return false
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	ID   string
	Role Role
}

// System is used by scheduled jobs and operator tooling.
var System = Actor{ID: "system", Role: RoleAdmin}

// IsStaff reports whether the actor manages inventory and loans.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleLibrarian
}

// RequireStaff returns ErrForbidden unless the actor is an admin or librarian.
func (a Actor) RequireStaff() error {
	if !a.IsStaff() {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin returns ErrForbidden unless the actor is an admin.
func (a Actor) RequireAdmin() error {
	if a.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanActFor reports whether the actor may operate on resources owned by userID.
func (a Actor) CanActFor(userID string) bool {
	return a.IsStaff() || (a.ID != "" && a.ID == userID)
}

// RequireSelfOrStaff returns ErrForbidden unless CanActFor(userID).
func (a Actor) RequireSelfOrStaff(userID string) error {
	if !a.CanActFor(userID) {
		return ErrForbidden
	}
	return nil
}
