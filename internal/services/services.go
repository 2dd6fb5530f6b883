// package services defines the interfaces for talking to the music provider over HTTP
package services

import (
	"context"
	"time"
)

// OAuthService covers the provider's OAuth2 endpoints plus the identity probe.
type OAuthService interface {
	// AuthURL builds the authorize URL the user-agent is redirected to.
	AuthURL(state string, showDialog bool) string

	// Exchange trades an authorization code for a token grant.
	Exchange(ctx context.Context, code string) (*TokenGrant, error)

	// Refresh obtains a new access token for refreshToken.
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)

	// CurrentUser probes the "who am I" endpoint with accessToken.
	CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error)
}

// LibraryService forwards read and playback-control calls on behalf of a user.
//
// Every call takes the caller's access token; implementations keep no per-user state.
type LibraryService interface {
	UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPaginatedPlaylists, error)
	TopTracks(ctx context.Context, accessToken string, opts TopOpts) (*Paging[SpotifyTrack], error)
	TopArtists(ctx context.Context, accessToken string, opts TopOpts) (*Paging[SpotifyArtist], error)
	Search(ctx context.Context, accessToken string, opts SearchOpts) (*SearchResult, error)
	CurrentlyPlaying(ctx context.Context, accessToken string) (*CurrentlyPlaying, error)
	Play(ctx context.Context, accessToken string) error
	Pause(ctx context.Context, accessToken string) error
}

// Service is the full provider surface used by the proxy.
type Service interface {
	OAuthService
	LibraryService

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// TokenGrant is the useful part of a token endpoint response.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string // empty when the provider did not issue or rotate one
	ExpiresIn    time.Duration
}

// TopOpts controls /me/top/{type} requests.
type TopOpts struct {
	TimeRange string // short_term, medium_term or long_term
	Limit     int
	Offset    int
}

// SearchOpts controls /search requests.
type SearchOpts struct {
	Query  string
	Types  []string // track, artist, album, playlist
	Limit  int
	Offset int
	Market string
}
