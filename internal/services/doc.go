// Package services defines the [Service] interface for the music provider and implements it for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] wraps the accounts service (authorize, token) through [oauth2.Config] and the Web API through plain HTTP.
// It holds no per-user state: every Web API call receives the caller's access token,
// so one instance serves all concurrent requests.
//
// Token endpoint calls authenticate with HTTP Basic client credentials.
// Refresh goes through [oauth2.Config.TokenSource] seeded with only the refresh token,
// which forces exactly one round-trip to the token endpoint.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrTokenExpired] : Web API answered 401
//   - [shared.ErrForbidden], [shared.ErrNotFound], [shared.ErrRateLimited] : 403, 404, 429
//   - [shared.ErrServiceUnavailable] : transport failure, undecodable body or any other status
//   - [shared.ErrRefreshFailed] : token endpoint rejected the refresh token (400/401)
//   - [shared.ErrAuthFailed] : authorization code exchange failed
//
// Non-2xx Web API responses are returned as [*APIError], which unwraps to one of the above.
//
// # Proxy Client
//
// [APIService] is a small client for a running proxy, used by the CLI status command.
package services
