package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/auth"
	"github.com/desertthunder/spotproxy/internal/models"
)

const (
	dashboardPath = "/dashboard"

	errStateMismatch = "/#error=state_mismatch"
	errAccessDenied  = "/#error=access_denied"
	errInvalidToken  = "/#error=invalid_token"
)

// OAuthHandler serves the login, callback, refresh and logout routes.
type OAuthHandler struct {
	exchanger *auth.Exchanger
	guard     *auth.Guard
	cookies   CookiePolicy
	journal   journal
}

func NewOAuthHandler(exchanger *auth.Exchanger, guard *auth.Guard, cookies CookiePolicy, j journal) *OAuthHandler {
	return &OAuthHandler{exchanger: exchanger, guard: guard, cookies: cookies, journal: j}
}

// Register mounts the handler's routes, including the legacy /login and /callback aliases.
func (h *OAuthHandler) Register(r *BasicRouter) {
	r.HandleFunc(http.MethodGet, "/auth/login", h.Login)
	r.HandleFunc(http.MethodGet, "/login", h.Login)
	r.HandleFunc(http.MethodGet, "/auth/callback", h.Callback)
	r.HandleFunc(http.MethodGet, "/callback", h.Callback)
	r.HandleFunc(http.MethodGet, "/auth/refresh", h.Refresh)
	r.HandleFunc(http.MethodGet, "/auth/logout", h.Logout)
}

// Login starts the authorization-code flow and redirects to the provider.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	redirect, state, err := h.exchanger.BeginLogin()
	if err != nil {
		log.FromContext(r.Context()).Error("failed to begin login", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start login")
		return
	}

	h.cookies.SetState(w, state)
	h.journal.record(r, models.NewAuthEvent(models.EventLogin, models.OutcomeSuccess))
	http.Redirect(w, r, redirect, http.StatusFound)
}

// Callback completes the flow. The state cookie is cleared whatever the outcome.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stored := h.cookies.ReadState(r)
	h.cookies.ClearState(w)

	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		log.FromContext(r.Context()).Info("authorization denied", "reason", providerErr)
		h.journal.record(r, models.NewAuthEvent(models.EventCallback, models.OutcomeAccessDenied))
		http.Redirect(w, r, errAccessDenied, http.StatusFound)
		return
	}

	cred, err := h.exchanger.CompleteLogin(r.Context(), q.Get("code"), auth.AuthState(q.Get("state")), stored)
	switch {
	case errors.Is(err, auth.ErrStateMismatch):
		h.journal.record(r, models.NewAuthEvent(models.EventCallback, models.OutcomeStateMismatch))
		http.Redirect(w, r, errStateMismatch, http.StatusFound)
		return
	case err != nil:
		log.FromContext(r.Context()).Warn("code exchange failed", "error", err)
		h.journal.record(r, models.NewAuthEvent(models.EventCallback, models.OutcomeInvalidCode))
		http.Redirect(w, r, errInvalidToken, http.StatusFound)
		return
	}

	h.cookies.SetCredential(w, cred)
	h.journal.record(r, models.NewAuthEvent(models.EventCallback, models.OutcomeSuccess))
	http.Redirect(w, r, dashboardPath, http.StatusFound)
}

type refreshResponse struct {
	Refreshed bool `json:"refreshed"`
	ExpiresIn int  `json:"expires_in"`
}

// Refresh trades the refresh cookie for a new access token cookie.
//
// The access token itself is not returned in the body.
func (h *OAuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cred, rotated, err := h.guard.Refresh(r.Context(), h.cookies.ReadCredential(r))
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		writeError(w, http.StatusUnauthorized, "No refresh token found")
		return
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		h.cookies.ClearCredential(w)
		h.journal.record(r, models.NewAuthEvent(models.EventRefresh, models.OutcomeInvalidRefreshToken))
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	case err != nil:
		log.FromContext(r.Context()).Warn("refresh failed", "error", err)
		h.journal.record(r, models.NewAuthEvent(models.EventRefresh, models.OutcomeUpstreamUnavailable))
		writeError(w, http.StatusBadGateway, "Failed to refresh token")
		return
	}

	h.cookies.SetAccessToken(w, cred)
	if rotated {
		h.cookies.SetRefreshToken(w, cred)
	}
	h.journal.record(r, models.NewAuthEvent(models.EventRefresh, models.OutcomeSuccess))

	ttl := cred.TTL(h.cookies.now()).Round(time.Second)
	writeJSON(w, http.StatusOK, refreshResponse{Refreshed: true, ExpiresIn: int(ttl.Seconds())})
}

// Logout clears every auth cookie and returns to the landing page.
func (h *OAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearCredential(w)
	h.cookies.ClearState(w)
	h.journal.record(r, models.NewAuthEvent(models.EventLogout, models.OutcomeSuccess))
	http.Redirect(w, r, "/", http.StatusFound)
}
