package domain

import (
	"errors"
	"strings"
	"time"
)

// UserRole enumerates the three account roles.
type UserRole string

const (
	RoleCitizen    UserRole = "Citizen"
	RoleWardMember UserRole = "Ward Member"
	RoleAdmin      UserRole = "Admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCitizen, RoleWardMember, RoleAdmin:
		return true
	}
	return false
}

// Privileged reports whether r may mutate complaint state.
func (r UserRole) Privileged() bool {
	return r == RoleWardMember || r == RoleAdmin
}

var (
	ErrInvalidRole       = errors.New("unknown role")
	ErrWardRequired      = errors.New("ward is required for ward members")
	ErrWardNotAllowed    = errors.New("ward is only allowed for ward members")
	ErrDepartmentMissing = errors.New("department is required for admins")
	ErrDepartmentDenied  = errors.New("department is only allowed for admins")
	ErrNameRequired      = errors.New("name is required")
)

// User is an account. Role, ward and department are fixed at creation.
type User struct {
	ID         string
	Name       string
	Email      string
	Role       UserRole
	Ward       string
	Department string
	TrustScore int
	Points     int
	Badges     []string
	CreatedAt  time.Time
}

// NewUser validates the ward/department invariant and returns the account.
func NewUser(id, name, email string, role UserRole, ward, department string) (*User, error) {
	name = strings.TrimSpace(name)
	ward = strings.TrimSpace(ward)
	department = strings.TrimSpace(department)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	switch {
	case role == RoleWardMember && ward == "":
		return nil, ErrWardRequired
	case role != RoleWardMember && ward != "":
		return nil, ErrWardNotAllowed
	case role == RoleAdmin && department == "":
		return nil, ErrDepartmentMissing
	case role != RoleAdmin && department != "":
		return nil, ErrDepartmentDenied
	}
	return &User{
		ID:         id,
		Name:       name,
		Email:      strings.TrimSpace(email),
		Role:       role,
		Ward:       ward,
		Department: department,
	}, nil
}

// Viewer is the ambient identity of a caller. A nil *Viewer is unauthenticated.
type Viewer struct {
	UserID string
	Role   UserRole
	Ward   string
}

// ViewerOf projects a user into the identity the engine reasons about.
func ViewerOf(u *User) *Viewer {
	if u == nil {
		return nil
	}
	return &Viewer{UserID: u.ID, Role: u.Role, Ward: u.Ward}
}

// Authenticated reports whether v carries an identity.
func (v *Viewer) Authenticated() bool {
	return v != nil && v.UserID != ""
}

// RoleOrAnonymous returns the role label used in logs and history.
func (v *Viewer) RoleOrAnonymous() string {
	if !v.Authenticated() {
		return "Anonymous"
	}
	return string(v.Role)
}
