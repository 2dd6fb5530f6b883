package models

import (
	"fmt"
	"time"
)

// EventKind names the flow that produced an [AuthEvent].
type EventKind string

const (
	EventLogin    EventKind = "login"
	EventCallback EventKind = "callback"
	EventRefresh  EventKind = "refresh"
	EventGuard    EventKind = "guard"
	EventLogout   EventKind = "logout"
)

// Outcome values recorded on events.
const (
	OutcomeSuccess             = "success"
	OutcomeRefreshed           = "refreshed"
	OutcomeMissingCredential   = "missing_credential"
	OutcomeInvalidRefreshToken = "invalid_refresh_token"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
	OutcomeStateMismatch       = "state_mismatch"
	OutcomeInvalidCode         = "invalid_code"
	OutcomeAccessDenied        = "access_denied"
)

// AuthEvent is one journal entry. It never carries token material.
type AuthEvent struct {
	id         string
	kind       EventKind
	outcome    string
	userID     string
	path       string
	remoteAddr string
	createdAt  time.Time
}

var _ Model = (*AuthEvent)(nil)

// NewAuthEvent creates an unsaved event stamped with the current time.
func NewAuthEvent(kind EventKind, outcome string) *AuthEvent {
	return &AuthEvent{kind: kind, outcome: outcome, createdAt: time.Now().UTC()}
}

func (e *AuthEvent) ID() string           { return e.id }
func (e *AuthEvent) Kind() EventKind      { return e.kind }
func (e *AuthEvent) Outcome() string      { return e.outcome }
func (e *AuthEvent) UserID() string       { return e.userID }
func (e *AuthEvent) Path() string         { return e.path }
func (e *AuthEvent) RemoteAddr() string   { return e.remoteAddr }
func (e *AuthEvent) CreatedAt() time.Time { return e.createdAt }

func (e *AuthEvent) SetID(id string) { e.id = id }

func (e *AuthEvent) SetCreatedAt(t time.Time) { e.createdAt = t }

// WithUser sets the provider user id, if known.
func (e *AuthEvent) WithUser(userID string) *AuthEvent {
	e.userID = userID
	return e
}

// WithRequest sets the request path and client address.
func (e *AuthEvent) WithRequest(path, remoteAddr string) *AuthEvent {
	e.path = path
	e.remoteAddr = remoteAddr
	return e
}

// Validate checks that kind and outcome are set and kind is known.
func (e *AuthEvent) Validate() error {
	switch e.kind {
	case EventLogin, EventCallback, EventRefresh, EventGuard, EventLogout:
	case "":
		return fmt.Errorf("event kind is required")
	default:
		return fmt.Errorf("unknown event kind %q", e.kind)
	}
	if e.outcome == "" {
		return fmt.Errorf("event outcome is required")
	}
	if e.createdAt.IsZero() {
		return fmt.Errorf("event timestamp is required")
	}
	return nil
}
