package session

import "errors"

// Authentication errors are surfaced to the user and never retried.
var (
	ErrInvalidCredentials  = errors.New("session: invalid credentials")
	ErrEmailInUse          = errors.New("session: email already registered")
	ErrWeakPassword        = errors.New("session: password too weak")
	ErrProviderUnreachable = errors.New("session: identity provider unreachable")
)

// ErrRoleUnresolved is returned by Login and Register when the user signed in
// but their role could not be read; the session stays anonymous until it can.
var ErrRoleUnresolved = errors.New("session: role could not be resolved")

var ErrStoreClosed = errors.New("session: store closed")

// IsAuthError reports whether err belongs to the authentication error family.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrEmailInUse) ||
		errors.Is(err, ErrWeakPassword) ||
		errors.Is(err, ErrProviderUnreachable)
}
