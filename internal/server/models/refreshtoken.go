package models

import "time"

// RefreshToken is the server-side record of an issued refresh token.
// Records are never deleted in normal operation; Revoked only ever goes
// from false to true.
type RefreshToken struct {
	TokenID   string
	Subject   string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Usable reports whether the record may still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
