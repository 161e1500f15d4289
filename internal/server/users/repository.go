// Package users is the identity lookup the token service logs subjects in
// against: existence, active status and a bcrypt password hash.
package users

import "context"

// Directory verifies credentials and account state. Verify and Active return
// common.ErrorUnauthorized for an unknown subject and a disabled subject alike;
// Verify also returns it for a wrong password. Any other error is a lookup
// fault.
type Directory interface {
	Verify(ctx context.Context, subject, password string) error
	Active(ctx context.Context, subject string) error
	// Register adds a subject. It returns common.ErrorInvalidArgument for
	// unusable credentials and common.ErrorAlreadyExists for a taken subject.
	Register(ctx context.Context, subject, password string) error
}
