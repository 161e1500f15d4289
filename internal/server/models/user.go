package models

import "time"

// User is an account the token service logs subjects in against. The JSON
// form is the users file format.
type User struct {
	Subject      string    `json:"subject"`
	PasswordHash string    `json:"password_hash"`
	Disabled     bool      `json:"disabled,omitempty"`
	CreatedAt    time.Time `json:"-"`
}
