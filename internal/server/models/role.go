// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles. Authorization decisions must go
// through Covers rather than comparing raw strings.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// roleLevels orders roles so that admin > user > viewer.
var roleLevels = map[Role]int{
	RoleAdmin:  3,
	RoleUser:   2,
	RoleViewer: 1,
}

// ParseRole converts a string into a Role, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: must be one of admin, user, viewer", s)
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Covers reports whether r grants at least the privileges of required.
// Unknown roles never cover anything.
func (r Role) Covers(required Role) bool {
	return roleLevels[r] >= roleLevels[required] && roleLevels[required] > 0
}

func (r Role) String() string { return string(r) }

// Status is the closed set of account states. Only active accounts may
// authenticate or refresh.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)
