package auth

import "fmt"

var (
	// ErrMissingCredential means the access token, the refresh token, or both were absent.
	ErrMissingCredential = fmt.Errorf("missing credential")
	// ErrInvalidRefreshToken means the provider rejected the refresh token; the user must log in again.
	ErrInvalidRefreshToken = fmt.Errorf("invalid refresh token")
	// ErrUpstreamUnavailable is a transient provider failure, not an authentication failure.
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	// ErrStateMismatch means the callback's state was missing or differs from the one issued at login.
	ErrStateMismatch = fmt.Errorf("state mismatch")
	// ErrInvalidAuthorizationCode means the code exchange was rejected or failed.
	ErrInvalidAuthorizationCode = fmt.Errorf("invalid authorization code")
)
