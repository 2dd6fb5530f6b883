// Spotify API implementation of [Service]
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotproxy/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// DefaultScopes are requested on every login.
var DefaultScopes = []string{
	"user-read-private",
	"user-read-email",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"user-read-recently-played",
	"user-top-read",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
}

var (
	timeRanges  = []string{"short_term", "medium_term", "long_term"}
	searchTypes = []string{"track", "artist", "album", "playlist"}
)

// APIError is returned for non-2xx Web API responses.
//
// Message is the upstream error text; it is meant for logs, never for clients.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: spotify API status %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: spotify API status %d: %s", e.kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// classifyStatus maps a Web API status code onto a shared sentinel.
func classifyStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case http.StatusForbidden:
		return shared.ErrForbidden
	case http.StatusNotFound:
		return shared.ErrNotFound
	case http.StatusTooManyRequests:
		return shared.ErrRateLimited
	default:
		return shared.ErrServiceUnavailable
	}
}

// SpotifyOpts configures a [SpotifyService].
//
// Empty URLs fall back to the public Spotify endpoints.
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	BaseURL      string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// SpotifyService implements the Service interface for Spotify API interactions.
//
// It is safe for concurrent use: the access token travels with each call instead of living on the struct.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

var _ Service = (*SpotifyService)(nil)

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if opts.RedirectURI == "" {
		opts.RedirectURI = "http://localhost:3000/auth/callback"
	}
	if len(opts.Scopes) == 0 {
		opts.Scopes = DefaultScopes
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	config := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  opts.RedirectURI,
		Scopes:       opts.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyService{
		config:     config,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
//
// showDialog forces the consent screen even when the user already approved the app.
func (s *SpotifyService) AuthURL(state string, showDialog bool) string {
	var opts []oauth2.AuthCodeOption
	if showDialog {
		opts = append(opts, oauth2.SetAuthURLParam("show_dialog", "true"))
	}
	return s.config.AuthCodeURL(state, opts...)
}

// oauthContext makes the oauth2 package use the service's HTTP client.
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Exchange trades an authorization code for tokens.
//
// Every failure wraps [shared.ErrAuthFailed].
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*TokenGrant, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", shared.ErrAuthFailed)
	}

	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)
	}
	return grantFromToken(token), nil
}

// Refresh obtains a new access token using refreshToken.
//
// A 400/401 from the token endpoint wraps [shared.ErrRefreshFailed]; anything else wraps [shared.ErrServiceUnavailable].
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", shared.ErrRefreshFailed)
	}

	src := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			switch re.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return nil, fmt.Errorf("%w: status %d %s", shared.ErrRefreshFailed, re.Response.StatusCode, re.ErrorCode)
			}
			return nil, fmt.Errorf("%w: token endpoint status %d", shared.ErrServiceUnavailable, re.Response.StatusCode)
		}
		return nil, fmt.Errorf("%w: refresh request failed: %v", shared.ErrServiceUnavailable, err)
	}

	grant := grantFromToken(token)
	if grant.RefreshToken == refreshToken {
		grant.RefreshToken = ""
	}
	return grant, nil
}

// grantFromToken converts an oauth2 token, preferring the wire expires_in over the computed expiry.
func grantFromToken(t *oauth2.Token) *TokenGrant {
	grant := &TokenGrant{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	switch {
	case t.ExpiresIn > 0:
		grant.ExpiresIn = time.Duration(t.ExpiresIn) * time.Second
	case !t.Expiry.IsZero():
		grant.ExpiresIn = time.Until(t.Expiry).Round(time.Second)
	}
	return grant
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// result may be nil; a 204 response leaves it untouched and reports noContent.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint, accessToken string, query url.Values, result any) (noContent bool, err error) {
	if accessToken == "" {
		return false, fmt.Errorf("%w: missing access token", shared.ErrTokenExpired)
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return false, fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, newAPIError(resp)
	}

	if resp.StatusCode == http.StatusNoContent {
		return true, nil
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, fmt.Errorf("%w: failed to decode response: %v", shared.ErrServiceUnavailable, err)
	}

	return false, nil
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, kind: classifyStatus(resp.StatusCode)}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Message = eb.Error.Message
	}
	return apiErr
}

// CurrentUser retrieves the profile that owns accessToken.
func (s *SpotifyService) CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, http.MethodGet, "/me", accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: identity payload without id", shared.ErrServiceUnavailable)
	}
	return &user, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(clampLimit(limit, 20)))
	query.Set("offset", strconv.Itoa(max(offset, 0)))

	var response SpotifyPaginatedPlaylists
	if _, err := s.doRequest(ctx, http.MethodGet, "/me/playlists", accessToken, query, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// TopTracks retrieves the user's most played tracks.
func (s *SpotifyService) TopTracks(ctx context.Context, accessToken string, opts TopOpts) (*Paging[SpotifyTrack], error) {
	var response Paging[SpotifyTrack]
	if _, err := s.doRequest(ctx, http.MethodGet, "/me/top/tracks", accessToken, opts.values(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// TopArtists retrieves the user's most played artists.
func (s *SpotifyService) TopArtists(ctx context.Context, accessToken string, opts TopOpts) (*Paging[SpotifyArtist], error) {
	var response Paging[SpotifyArtist]
	if _, err := s.doRequest(ctx, http.MethodGet, "/me/top/artists", accessToken, opts.values(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Search queries the catalog. An empty query is rejected before any request is made.
func (s *SpotifyService) Search(ctx context.Context, accessToken string, opts SearchOpts) (*SearchResult, error) {
	query, err := opts.values()
	if err != nil {
		return nil, err
	}

	var response SearchResult
	if _, err := s.doRequest(ctx, http.MethodGet, "/search", accessToken, query, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// CurrentlyPlaying returns the playing item, or nil when nothing is playing.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, accessToken string) (*CurrentlyPlaying, error) {
	var playing CurrentlyPlaying
	noContent, err := s.doRequest(ctx, http.MethodGet, "/me/player/currently-playing", accessToken, nil, &playing)
	if err != nil {
		return nil, err
	}
	if noContent {
		return nil, nil
	}
	return &playing, nil
}

// Play resumes playback on the user's active device.
func (s *SpotifyService) Play(ctx context.Context, accessToken string) error {
	_, err := s.doRequest(ctx, http.MethodPut, "/me/player/play", accessToken, nil, nil)
	return err
}

// Pause pauses playback on the user's active device.
func (s *SpotifyService) Pause(ctx context.Context, accessToken string) error {
	_, err := s.doRequest(ctx, http.MethodPut, "/me/player/pause", accessToken, nil, nil)
	return err
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, 50)
}

func (o TopOpts) values() url.Values {
	timeRange := o.TimeRange
	if !slices.Contains(timeRanges, timeRange) {
		timeRange = "medium_term"
	}

	v := url.Values{}
	v.Set("time_range", timeRange)
	v.Set("limit", strconv.Itoa(clampLimit(o.Limit, 50)))
	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}
	return v
}

func (o SearchOpts) values() (url.Values, error) {
	q := strings.TrimSpace(o.Query)
	if q == "" {
		return nil, fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	types := make([]string, 0, len(o.Types))
	for _, t := range o.Types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || slices.Contains(types, t) {
			continue
		}
		if !slices.Contains(searchTypes, t) {
			return nil, fmt.Errorf("%w: unsupported search type %q", shared.ErrInvalidArgument, t)
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		types = []string{"track"}
	}

	v := url.Values{}
	v.Set("q", q)
	v.Set("type", strings.Join(types, ","))
	v.Set("limit", strconv.Itoa(clampLimit(o.Limit, 20)))
	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}
	if o.Market != "" {
		v.Set("market", o.Market)
	}
	return v, nil
}
