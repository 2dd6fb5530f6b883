package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotproxy/internal/shared"
	tu "github.com/desertthunder/spotproxy/internal/testing"
	"golang.org/x/oauth2"
)

func newTestService(t *testing.T, fake *tu.FakeSpotify) *SpotifyService {
	t.Helper()
	srv, err := NewSpotifyService(SpotifyOpts{
		ClientID:     tu.FakeClientID,
		ClientSecret: tu.FakeClientSecret,
		RedirectURI:  "http://localhost:3000/auth/callback",
		AuthURL:      fake.AuthURL(),
		TokenURL:     fake.TokenURL(),
		BaseURL:      fake.APIURL(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(SpotifyOpts{ClientID: "id", ClientSecret: "secret"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://localhost:3000/auth/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
			if srv.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
			if srv.config.Endpoint.AuthStyle != oauth2.AuthStyleInHeader {
				t.Error("expected client credentials in the Authorization header")
			}
			if len(srv.config.Scopes) != len(DefaultScopes) {
				t.Errorf("expected %d default scopes, got %d", len(DefaultScopes), len(srv.config.Scopes))
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(SpotifyOpts{ClientSecret: "secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(SpotifyOpts{ClientID: "id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Trims Base URL", func(t *testing.T) {
			srv, err := NewSpotifyService(SpotifyOpts{ClientID: "id", ClientSecret: "secret", BaseURL: "http://x/v1/"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.baseURL != "http://x/v1" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.baseURL)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(SpotifyOpts{ClientID: "test_client_id", ClientSecret: "secret"})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		raw := srv.AuthURL("abcDEF1234567890", true)
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("auth URL should parse: %v", err)
		}

		if u.Host != "accounts.spotify.com" {
			t.Errorf("auth URL should use the Spotify accounts host, got %s", u.Host)
		}

		q := u.Query()
		checks := map[string]string{
			"client_id":     "test_client_id",
			"response_type": "code",
			"state":         "abcDEF1234567890",
			"redirect_uri":  "http://localhost:3000/auth/callback",
			"show_dialog":   "true",
		}
		for key, want := range checks {
			if got := q.Get(key); got != want {
				t.Errorf("expected %s=%q, got %q", key, want, got)
			}
		}
		if !strings.Contains(q.Get("scope"), "user-top-read") {
			t.Errorf("expected scope to include user-top-read, got %q", q.Get("scope"))
		}

		if strings.Contains(srv.AuthURL("s", false), "show_dialog") {
			t.Error("show_dialog should be omitted when disabled")
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		srv := newTestService(t, fake)
		fake.AllowCode("good-code", "access-1", "refresh-1", "user1")

		t.Run("Valid Code", func(t *testing.T) {
			grant, err := srv.Exchange(ctx, "good-code")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if grant.AccessToken != "access-1" || grant.RefreshToken != "refresh-1" {
				t.Errorf("unexpected grant %+v", grant)
			}
			if grant.ExpiresIn != time.Hour {
				t.Errorf("expected expires_in of 1h, got %v", grant.ExpiresIn)
			}
		})

		t.Run("Code Reuse Rejected", func(t *testing.T) {
			_, err := srv.Exchange(ctx, "good-code")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("Empty Code", func(t *testing.T) {
			before := fake.Calls("/api/token")
			_, err := srv.Exchange(ctx, "")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
			if fake.Calls("/api/token") != before {
				t.Error("empty code should not reach the token endpoint")
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		srv := newTestService(t, fake)

		t.Run("Valid Refresh Token", func(t *testing.T) {
			fake.AllowRefresh("validRefresh", "new456", "", "user1")

			grant, err := srv.Refresh(ctx, "validRefresh")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if grant.AccessToken != "new456" {
				t.Errorf("expected new456, got %s", grant.AccessToken)
			}
			if grant.RefreshToken != "" {
				t.Errorf("expected no rotated refresh token, got %s", grant.RefreshToken)
			}
		})

		t.Run("Rotated Refresh Token", func(t *testing.T) {
			fake.AllowRefresh("oldRefresh", "new789", "rotatedRefresh", "user1")

			grant, err := srv.Refresh(ctx, "oldRefresh")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if grant.RefreshToken != "rotatedRefresh" {
				t.Errorf("expected rotated refresh token, got %q", grant.RefreshToken)
			}
		})

		t.Run("Revoked Refresh Token", func(t *testing.T) {
			_, err := srv.Refresh(ctx, "revoked")
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})

		t.Run("Token Endpoint Down", func(t *testing.T) {
			fake.FailToken(http.StatusServiceUnavailable)
			defer fake.FailToken(0)

			_, err := srv.Refresh(ctx, "validRefresh")
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
			if errors.Is(err, shared.ErrRefreshFailed) {
				t.Error("an outage must not look like a revoked token")
			}
		})

		t.Run("Transport Failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			broken, err := NewSpotifyService(SpotifyOpts{
				ClientID: "id", ClientSecret: "secret", TokenURL: fake.TokenURL(), HTTPClient: client,
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = broken.Refresh(ctx, "validRefresh")
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("CurrentUser", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		srv := newTestService(t, fake)
		fake.AllowToken("valid123", "user1")

		t.Run("Valid Token", func(t *testing.T) {
			user, err := srv.CurrentUser(ctx, "valid123")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if user.ID != "user1" {
				t.Errorf("expected user1, got %s", user.ID)
			}
			if user.Followers.Total != 7 {
				t.Errorf("expected follower count 7, got %d", user.Followers.Total)
			}
		})

		t.Run("Expired Token", func(t *testing.T) {
			_, err := srv.CurrentUser(ctx, "expired123")
			if !errors.Is(err, shared.ErrTokenExpired) {
				t.Errorf("expected ErrTokenExpired, got %v", err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", apiErr.StatusCode)
			}
			if apiErr.Message != "The access token expired" {
				t.Errorf("expected upstream message, got %q", apiErr.Message)
			}
		})

		t.Run("Missing Token", func(t *testing.T) {
			before := fake.Calls("/v1/me")
			_, err := srv.CurrentUser(ctx, "")
			if !errors.Is(err, shared.ErrTokenExpired) {
				t.Errorf("expected ErrTokenExpired, got %v", err)
			}
			if fake.Calls("/v1/me") != before {
				t.Error("missing token should not reach the API")
			}
		})

		t.Run("Status Classification", func(t *testing.T) {
			tests := []struct {
				status int
				want   error
			}{
				{http.StatusForbidden, shared.ErrForbidden},
				{http.StatusNotFound, shared.ErrNotFound},
				{http.StatusTooManyRequests, shared.ErrRateLimited},
				{http.StatusInternalServerError, shared.ErrServiceUnavailable},
				{http.StatusBadGateway, shared.ErrServiceUnavailable},
			}

			for _, tt := range tests {
				t.Run(http.StatusText(tt.status), func(t *testing.T) {
					fake.FailAPI(tt.status)
					defer fake.FailAPI(0)

					_, err := srv.CurrentUser(ctx, "valid123")
					if !errors.Is(err, tt.want) {
						t.Errorf("expected %v, got %v", tt.want, err)
					}
				})
			}
		})

		t.Run("Unreadable Body", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			broken, err := NewSpotifyService(SpotifyOpts{ClientID: "id", ClientSecret: "secret", HTTPClient: client})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = broken.CurrentUser(ctx, "valid123")
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("Library", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		srv := newTestService(t, fake)
		fake.AllowToken("valid123", "user1")

		t.Run("UserPlaylists", func(t *testing.T) {
			page, err := srv.UserPlaylists(ctx, "valid123", 0, -3)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Items) != 1 || page.Items[0].Name != "Road Trip" {
				t.Errorf("unexpected playlists %+v", page.Items)
			}
			if q := fake.LastQuery("/v1/me/playlists"); q != "limit=20&offset=0" {
				t.Errorf("expected defaulted paging, got %q", q)
			}
		})

		t.Run("TopTracks Defaults", func(t *testing.T) {
			page, err := srv.TopTracks(ctx, "valid123", TopOpts{TimeRange: "forever"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Items) != 1 || page.Items[0].ID != "t1" {
				t.Errorf("unexpected tracks %+v", page.Items)
			}
			if q := fake.LastQuery("/v1/me/top/tracks"); q != "limit=50&time_range=medium_term" {
				t.Errorf("expected default time range, got %q", q)
			}
		})

		t.Run("TopArtists", func(t *testing.T) {
			page, err := srv.TopArtists(ctx, "valid123", TopOpts{TimeRange: "short_term", Limit: 99, Offset: 5})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Items) != 1 || page.Items[0].Genres[0] != "indie" {
				t.Errorf("unexpected artists %+v", page.Items)
			}
			if q := fake.LastQuery("/v1/me/top/artists"); q != "limit=50&offset=5&time_range=short_term" {
				t.Errorf("expected clamped limit, got %q", q)
			}
		})

		t.Run("Search", func(t *testing.T) {
			result, err := srv.Search(ctx, "valid123", SearchOpts{Query: " radiohead ", Types: []string{"Track", "artist", "track"}})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Tracks == nil || result.Artists == nil {
				t.Fatalf("expected tracks and artists, got %+v", result)
			}
			if result.Tracks.Items[0].Name != "radiohead" {
				t.Errorf("expected trimmed query echo, got %s", result.Tracks.Items[0].Name)
			}
			if result.Albums != nil {
				t.Error("albums were not requested")
			}
		})

		t.Run("Search Validation", func(t *testing.T) {
			before := fake.Calls("/v1/search")

			if _, err := srv.Search(ctx, "valid123", SearchOpts{Query: "  "}); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			if _, err := srv.Search(ctx, "valid123", SearchOpts{Query: "x", Types: []string{"podcast"}}); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if fake.Calls("/v1/search") != before {
				t.Error("invalid searches should not reach the API")
			}
		})

		t.Run("Playback", func(t *testing.T) {
			playing, err := srv.CurrentlyPlaying(ctx, "valid123")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if playing != nil {
				t.Errorf("expected nothing playing, got %+v", playing)
			}

			if err := srv.Play(ctx, "valid123"); err != nil {
				t.Fatalf("play failed: %v", err)
			}

			playing, err = srv.CurrentlyPlaying(ctx, "valid123")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if playing == nil || !playing.IsPlaying || playing.Item.ID != "t1" {
				t.Errorf("expected t1 playing, got %+v", playing)
			}

			if err := srv.Pause(ctx, "valid123"); err != nil {
				t.Fatalf("pause failed: %v", err)
			}
			if fake.Playing() {
				t.Error("expected playback to be paused")
			}
		})

		t.Run("Playback Without Premium", func(t *testing.T) {
			fake.FailAPI(http.StatusForbidden)
			defer fake.FailAPI(0)

			if err := srv.Play(ctx, "valid123"); !errors.Is(err, shared.ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
		})
	})

	t.Run("grantFromToken", func(t *testing.T) {
		t.Run("Prefers ExpiresIn", func(t *testing.T) {
			grant := grantFromToken(&oauth2.Token{AccessToken: "a", ExpiresIn: 120, Expiry: time.Now().Add(time.Hour)})
			if grant.ExpiresIn != 2*time.Minute {
				t.Errorf("expected 2m, got %v", grant.ExpiresIn)
			}
		})

		t.Run("Falls Back To Expiry", func(t *testing.T) {
			grant := grantFromToken(&oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour + 200*time.Millisecond)})
			if grant.ExpiresIn != time.Hour {
				t.Errorf("expected 1h, got %v", grant.ExpiresIn)
			}
		})

		t.Run("No Expiry", func(t *testing.T) {
			if grant := grantFromToken(&oauth2.Token{AccessToken: "a"}); grant.ExpiresIn != 0 {
				t.Errorf("expected zero, got %v", grant.ExpiresIn)
			}
		})
	})
}
