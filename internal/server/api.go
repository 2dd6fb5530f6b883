package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/services"
)

// APIHandler forwards guarded /api requests to the provider with the caller's own access token.
type APIHandler struct {
	library services.LibraryService
}

func NewAPIHandler(library services.LibraryService) *APIHandler {
	return &APIHandler{library: library}
}

// Register mounts the /api routes. r should already carry [RequireAuth].
func (h *APIHandler) Register(r *BasicRouter) {
	r.HandleFunc(http.MethodGet, "/api/auth-status", h.AuthStatus)
	r.HandleFunc(http.MethodGet, "/api/me", h.Me)
	r.HandleFunc(http.MethodGet, "/api/playlists", h.Playlists)
	r.HandleFunc(http.MethodGet, "/api/top/tracks", h.TopTracks)
	r.HandleFunc(http.MethodGet, "/api/top/artists", h.TopArtists)
	r.HandleFunc(http.MethodGet, "/api/search", h.Search)
	r.HandleFunc(http.MethodGet, "/api/player/currently-playing", h.CurrentlyPlaying)
	r.HandleFunc(http.MethodPut, "/api/player/play", h.Play)
	r.HandleFunc(http.MethodPut, "/api/player/pause", h.Pause)
}

// accessToken returns the guard-validated token or writes a 401.
func accessToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	cred, ok := CredentialFrom(r.Context())
	if !ok || cred.AccessToken == "" {
		writeNotAuthenticated(w, http.StatusUnauthorized, "Not authenticated")
		return "", false
	}
	return cred.AccessToken, true
}

// queryInt reads a non-negative integer parameter, falling back to def when absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

type userSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type authStatus struct {
	Authenticated bool        `json:"authenticated"`
	User          userSummary `json:"user"`
}

func (h *APIHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		writeNotAuthenticated(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, authStatus{
		Authenticated: true,
		User:          userSummary{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email},
	})
}

// Me returns the identity from the guard's probe without another upstream call.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		writeNotAuthenticated(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	token, ok := accessToken(w, r)
	if !ok {
		return
	}

	page, err := h.library.UserPlaylists(r.Context(), token, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		log.FromContext(r.Context()).Warn("playlists failed", "error", err)
		writeUpstreamError(w, err, "Failed to fetch playlists", nil)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

var topMessages = upstreamMessages{
	http.StatusForbidden: "Insufficient permissions. Please log in again to grant access to your top items.",
}

func topOpts(r *http.Request) services.TopOpts {
	return services.TopOpts{
		TimeRange: r.URL.Query().Get("time_range"),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}
}

func (h *APIHandler) TopTracks(w http.ResponseWriter, r *http.Request) {
	token, ok := accessToken(w, r)
	if !ok {
		return
	}

	page, err := h.library.TopTracks(r.Context(), token, topOpts(r))
	if err != nil {
		log.FromContext(r.Context()).Warn("top tracks failed", "error", err)
		writeUpstreamError(w, err, "Failed to fetch top tracks", topMessages)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *APIHandler) TopArtists(w http.ResponseWriter, r *http.Request) {
	token, ok := accessToken(w, r)
	if !ok {
		return
	}

	page, err := h.library.TopArtists(r.Context(), token, topOpts(r))
	if err != nil {
		log.FromContext(r.Context()).Warn("top artists failed", "error", err)
		writeUpstreamError(w, err, "Failed to fetch top artists", topMessages)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	token, ok := accessToken(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	var types []string
	if raw := q.Get("type"); raw != "" {
		types = strings.Split(raw, ",")
	}

	result, err := h.library.Search(r.Context(), token, services.SearchOpts{
		Query:  query,
		Types:  types,
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
		Market: q.Get("market"),
	})
	if err != nil {
		log.FromContext(r.Context()).Warn("search failed", "error", err)
		writeUpstreamError(w, err, "Failed to search", upstreamMessages{
			http.StatusBadRequest: "Invalid search type",
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

var playerMessages = upstreamMessages{
	http.StatusForbidden: "Playback control requires Spotify Premium",
	http.StatusNotFound:  "No active device found",
}

// CurrentlyPlaying answers 204 when nothing is playing.
func (h *APIHandler) CurrentlyPlaying(w http.ResponseWriter, r *http.Request) {
	token, ok := accessToken(w, r)
	if !ok {
		return
	}

	playing, err := h.library.CurrentlyPlaying(r.Context(), token)
	if err != nil {
		log.FromContext(r.Context()).Warn("currently playing failed", "error", err)
		writeUpstreamError(w, err, "Failed to fetch currently playing", playerMessages)
		return
	}
	if playing == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, playing)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *APIHandler) Play(w http.ResponseWriter, r *http.Request) {
	token, ok := accessToken(w, r)
	if !ok {
		return
	}

	if err := h.library.Play(r.Context(), token); err != nil {
		log.FromContext(r.Context()).Warn("play failed", "error", err)
		writeUpstreamError(w, err, "Failed to start playback", playerMessages)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Playback started"})
}

func (h *APIHandler) Pause(w http.ResponseWriter, r *http.Request) {
	token, ok := accessToken(w, r)
	if !ok {
		return
	}

	if err := h.library.Pause(r.Context(), token); err != nil {
		log.FromContext(r.Context()).Warn("pause failed", "error", err)
		writeUpstreamError(w, err, "Failed to pause playback", playerMessages)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Playback paused"})
}
