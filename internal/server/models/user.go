package models

import "time"

// User is the authentication principal. The auth core reads identity, role
// and status, and exclusively owns mutation of PasswordHash; the rest of the
// row's lifecycle belongs to user administration.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Status       Status
	CreatedAt    time.Time
}
