package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	FakeClientID     = "test-client"
	FakeClientSecret = "test-secret"
)

// FakeSpotify is an in-process stand-in for the accounts service and the Web API.
//
// Access tokens, refresh tokens and authorization codes must be registered before use;
// anything unknown is rejected the way Spotify rejects it. Every request is counted per path.
type FakeSpotify struct {
	Server *httptest.Server

	mu          sync.Mutex
	users       map[string]string // access token -> user id
	refresh     map[string]fakeGrant
	codes       map[string]fakeGrant
	tokenStatus int
	apiStatus   int
	playing     bool
	calls       map[string]int
	lastQuery   map[string]string
}

type fakeGrant struct {
	access  string
	refresh string
	userID  string
}

// NewFakeSpotify starts a fake and closes it when t finishes.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		users:     make(map[string]string),
		refresh:   make(map[string]fakeGrant),
		codes:     make(map[string]fakeGrant),
		calls:     make(map[string]int),
		lastQuery: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.token)
	mux.HandleFunc("GET /v1/me", f.me)
	mux.HandleFunc("GET /v1/me/playlists", f.playlists)
	mux.HandleFunc("GET /v1/me/top/{kind}", f.top)
	mux.HandleFunc("GET /v1/search", f.search)
	mux.HandleFunc("GET /v1/me/player/currently-playing", f.currentlyPlaying)
	mux.HandleFunc("PUT /v1/me/player/{action}", f.player)

	f.Server = httptest.NewServer(f.count(mux))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeSpotify) AuthURL() string  { return f.Server.URL + "/authorize" }
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }
func (f *FakeSpotify) APIURL() string   { return f.Server.URL + "/v1" }

// AllowToken makes /me accept accessToken as userID.
func (f *FakeSpotify) AllowToken(accessToken, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[accessToken] = userID
}

// AllowRefresh makes the token endpoint trade refreshToken for newAccess.
//
// The issued token is accepted by /me only when userID is non-empty. rotated, when set, is returned as the new refresh token.
func (f *FakeSpotify) AllowRefresh(refreshToken, newAccess, rotated, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[refreshToken] = fakeGrant{access: newAccess, refresh: rotated, userID: userID}
}

// AllowCode makes the token endpoint trade code for the given tokens.
func (f *FakeSpotify) AllowCode(code, access, refresh, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = fakeGrant{access: access, refresh: refresh, userID: userID}
}

// FailToken forces every token endpoint response to status. Zero restores normal behavior.
func (f *FakeSpotify) FailToken(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus = status
}

// FailAPI forces every Web API response to status. Zero restores normal behavior.
func (f *FakeSpotify) FailAPI(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiStatus = status
}

func (f *FakeSpotify) SetPlaying(playing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = playing
}

func (f *FakeSpotify) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// Calls reports how many requests hit path, e.g. "/api/token" or "/v1/me".
func (f *FakeSpotify) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// TotalCalls reports every request the fake has served.
func (f *FakeSpotify) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// LastQuery returns the raw query string of the most recent request to path.
func (f *FakeSpotify) LastQuery(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery[path]
}

func (f *FakeSpotify) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.lastQuery[r.URL.Path] = r.URL.RawQuery
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func apiError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": message}})
}

func (f *FakeSpotify) token(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	forced := f.tokenStatus
	f.mu.Unlock()

	if forced != 0 {
		writeJSON(w, forced, map[string]string{"error": "server_error"})
		return
	}

	id, secret, ok := r.BasicAuth()
	if !ok || id != FakeClientID || secret != FakeClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	var (
		grant fakeGrant
		found bool
	)
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		grant, found = f.codes[r.PostForm.Get("code")]
		if found {
			delete(f.codes, r.PostForm.Get("code"))
		}
	case "refresh_token":
		grant, found = f.refresh[r.PostForm.Get("refresh_token")]
	}
	if found && grant.userID != "" {
		f.users[grant.access] = grant.userID
	}
	f.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid grant"})
		return
	}

	body := map[string]any{
		"access_token": grant.access,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "user-read-private user-read-email",
	}
	if grant.refresh != "" {
		body["refresh_token"] = grant.refresh
	}
	writeJSON(w, http.StatusOK, body)
}

// authorize resolves the bearer token to a user id, writing the failure response itself.
func (f *FakeSpotify) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	f.mu.Lock()
	forced := f.apiStatus
	userID, ok := f.users[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	f.mu.Unlock()

	if forced != 0 {
		apiError(w, forced, http.StatusText(forced))
		return "", false
	}
	if !ok {
		apiError(w, http.StatusUnauthorized, "The access token expired")
		return "", false
	}
	return userID, true
}

func (f *FakeSpotify) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := f.authorize(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           userID,
		"display_name": "Test User " + userID,
		"email":        userID + "@example.com",
		"country":      "US",
		"product":      "premium",
		"followers":    map[string]int{"total": 7},
		"uri":          "spotify:user:" + userID,
	})
}

func (f *FakeSpotify) playlists(w http.ResponseWriter, r *http.Request) {
	userID, ok := f.authorize(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": []map[string]any{{
			"id":     "pl1",
			"name":   "Road Trip",
			"owner":  map[string]string{"id": userID, "display_name": "Test User " + userID},
			"public": true,
			"tracks": map[string]int{"total": 12},
			"uri":    "spotify:playlist:pl1",
		}},
		"total":  1,
		"limit":  20,
		"offset": 0,
	})
}

func (f *FakeSpotify) top(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authorize(w, r); !ok {
		return
	}

	var item map[string]any
	switch r.PathValue("kind") {
	case "tracks":
		item = map[string]any{"id": "t1", "name": "Song One", "duration_ms": 180000, "uri": "spotify:track:t1"}
	case "artists":
		item = map[string]any{"id": "a1", "name": "Artist One", "genres": []string{"indie"}, "uri": "spotify:artist:a1"}
	default:
		apiError(w, http.StatusNotFound, "Service not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{item}, "total": 1, "limit": 50})
}

func (f *FakeSpotify) search(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authorize(w, r); !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		apiError(w, http.StatusBadRequest, "No search query")
		return
	}

	body := map[string]any{}
	for _, t := range strings.Split(r.URL.Query().Get("type"), ",") {
		switch t {
		case "track":
			body["tracks"] = map[string]any{"items": []map[string]any{{"id": "t1", "name": q}}, "total": 1}
		case "artist":
			body["artists"] = map[string]any{"items": []map[string]any{{"id": "a1", "name": q}}, "total": 1}
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeSpotify) currentlyPlaying(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authorize(w, r); !ok {
		return
	}
	if !f.Playing() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"is_playing":             true,
		"progress_ms":            42000,
		"currently_playing_type": "track",
		"item":                   map[string]any{"id": "t1", "name": "Song One", "duration_ms": 180000},
	})
}

func (f *FakeSpotify) player(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authorize(w, r); !ok {
		return
	}
	switch r.PathValue("action") {
	case "play":
		f.SetPlaying(true)
	case "pause":
		f.SetPlaying(false)
	default:
		apiError(w, http.StatusNotFound, "Service not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
