package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/spotproxy/internal/shared"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes value with the given status code.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// upstreamMessages overrides the client-facing text per status for one route.
type upstreamMessages map[int]string

// writeUpstreamError maps a services error onto a client response.
//
// 401, 403, 404 and 429 pass through; everything else is a 502 with fallback as the message.
// Upstream bodies are never forwarded.
func writeUpstreamError(w http.ResponseWriter, err error, fallback string, overrides upstreamMessages) {
	status := http.StatusBadGateway
	message := fallback

	switch {
	case errors.Is(err, shared.ErrTokenExpired):
		status, message = http.StatusUnauthorized, "Access token expired"
	case errors.Is(err, shared.ErrForbidden):
		status, message = http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, shared.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, shared.ErrRateLimited):
		status, message = http.StatusTooManyRequests, "Rate limited by Spotify, try again later"
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument):
		status, message = http.StatusBadRequest, "Invalid request"
	}

	if m, ok := overrides[status]; ok {
		message = m
	}
	writeError(w, status, message)
}
