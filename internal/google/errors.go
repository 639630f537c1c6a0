package google

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenNotFound is returned when no token has been stored yet.
	ErrTokenNotFound = errors.New("no stored Google token")

	// ErrClientSecretsNotFound is returned when none of the candidate client secret files exist.
	ErrClientSecretsNotFound = errors.New("Google OAuth client secrets not found")
)

// AuthenticationError reports a failure to obtain or use Google credentials.
type AuthenticationError struct {
	Op  string
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s: %v", e.Op, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
