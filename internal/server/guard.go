package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/auth"
	"github.com/desertthunder/spotproxy/internal/models"
	"github.com/desertthunder/spotproxy/internal/services"
)

// EventRecorder persists auth journal entries.
type EventRecorder interface {
	Record(ctx context.Context, event *models.AuthEvent) error
}

const recordTimeout = 2 * time.Second

// journal records events and counts them. Both sinks are optional.
type journal struct {
	recorder EventRecorder
	metrics  *Metrics
}

// record writes event without failing the request. It detaches from the request's cancellation.
func (j journal) record(r *http.Request, event *models.AuthEvent) {
	if j.metrics != nil {
		j.metrics.ObserveEvent(string(event.Kind()), event.Outcome())
	}
	if j.recorder == nil {
		return
	}

	event.WithRequest(r.URL.Path, clientIP(r))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), recordTimeout)
	defer cancel()

	if err := j.recorder.Record(ctx, event); err != nil {
		log.FromContext(r.Context()).Warn("failed to record auth event", "kind", event.Kind(), "error", err)
	}
}

// recordAfter flushes what has been written to w before recording, so a slow journal write does not hold up
// the response.
func (j journal) recordAfter(w http.ResponseWriter, r *http.Request, event *models.AuthEvent) {
	_ = http.NewResponseController(w).Flush()
	j.record(r, event)
}

// CredentialFrom returns the credential the guard validated for this request.
func CredentialFrom(ctx context.Context) (auth.Credential, bool) {
	cred, ok := ctx.Value(credentialKey).(auth.Credential)
	return cred, ok
}

// IdentityFrom returns the identity the guard's probe returned for this request.
func IdentityFrom(ctx context.Context) (*services.SpotifyUser, bool) {
	user, ok := ctx.Value(identityKey).(*services.SpotifyUser)
	return user, ok && user != nil
}

type notAuthenticated struct {
	Authenticated bool   `json:"authenticated"`
	Error         string `json:"error"`
}

func writeNotAuthenticated(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, notAuthenticated{Authenticated: false, Error: message})
}

// guardOutcome names err for metrics and the journal.
func guardOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return models.OutcomeMissingCredential
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return models.OutcomeInvalidRefreshToken
	default:
		return models.OutcomeUpstreamUnavailable
	}
}

// RequireAuth runs the token guard in front of next.
//
// A refreshed credential is written back to the cookies before next runs. Journal entries are written once
// the response has been flushed. On failure next never runs:
// missing credentials and rejected refresh tokens answer 401 (the latter clearing the token cookies),
// upstream failures answer 502.
func RequireAuth(guard *auth.Guard, cookies CookiePolicy, j journal) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := log.FromContext(r.Context())

			out, err := guard.Authenticate(r.Context(), cookies.ReadCredential(r))
			if err != nil {
				outcome := guardOutcome(err)
				if j.metrics != nil {
					j.metrics.ObserveGuard(outcome)
				}

				switch outcome {
				case models.OutcomeMissingCredential:
					writeNotAuthenticated(w, http.StatusUnauthorized, "Not authenticated")
				case models.OutcomeInvalidRefreshToken:
					cookies.ClearCredential(w)
					writeNotAuthenticated(w, http.StatusUnauthorized, "Session expired, please log in again")
					j.recordAfter(w, r, models.NewAuthEvent(models.EventGuard, outcome))
				default:
					logger.Warn("guard failed", "error", err)
					writeNotAuthenticated(w, http.StatusBadGateway, "Authentication service unavailable")
					j.recordAfter(w, r, models.NewAuthEvent(models.EventGuard, outcome))
				}
				return
			}

			if out.Refreshed {
				cookies.SetAccessToken(w, out.Credential)
				if out.RefreshRotated {
					cookies.SetRefreshToken(w, out.Credential)
				}
			}
			if j.metrics != nil {
				if out.Refreshed {
					j.metrics.ObserveGuard(models.OutcomeRefreshed)
				} else {
					j.metrics.ObserveGuard(models.OutcomeSuccess)
				}
			}

			ctx := context.WithValue(r.Context(), credentialKey, out.Credential)
			ctx = context.WithValue(ctx, identityKey, out.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))

			if out.Refreshed {
				j.recordAfter(w, r, models.NewAuthEvent(models.EventGuard, models.OutcomeRefreshed).WithUser(out.Identity.ID))
			}
		})
	}
}
