// Package auth owns the user's credential lifecycle.
//
// # Guard
//
// [Guard] validates a cookie-held [Credential] against the provider's identity endpoint.
// When the access token is rejected it refreshes once and probes once more; it never loops.
// The guard has no storage side effects. A refreshed credential is returned in the [Outcome]
// and the caller decides how to persist it (the HTTP layer reissues cookies).
//
//	Start -> Probe -> Authenticated
//	             \-> 401 -> Refresh -> Probe -> Authenticated | Failed
//	             |                 \-> Failed
//	             \-> other -> Failed
//
// # Login
//
// [Exchanger] runs the authorization-code flow: [Exchanger.BeginLogin] mints an [AuthState]
// and the authorize URL, [Exchanger.CompleteLogin] checks the returned state before any
// upstream call and trades the code for a [Credential].
//
// # Errors
//
// Every failure wraps exactly one of [ErrMissingCredential], [ErrInvalidRefreshToken],
// [ErrUpstreamUnavailable], [ErrStateMismatch] or [ErrInvalidAuthorizationCode].
// Upstream errors are flattened into the message and cannot be unwrapped.
package auth
