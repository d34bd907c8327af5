package models

import "time"

// RevocationEntry blacklists one exact access token before its natural
// expiry. JTI is the SHA-256 fingerprint of the signed token. Once
// ExpiresAt passes the entry is redundant and may be purged.
type RevocationEntry struct {
	JTI       string
	ExpiresAt time.Time
	RevokedAt time.Time
}
