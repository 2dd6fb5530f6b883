package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/services"
	"github.com/desertthunder/spotproxy/internal/shared"
)

// Provider is the part of the provider client the guard needs.
type Provider interface {
	CurrentUser(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenGrant, error)
}

// GuardOpts configures a [Guard]. Nil fields fall back to defaults.
type GuardOpts struct {
	Provider Provider
	Logger   *log.Logger
	Now      func() time.Time
}

// Guard validates credentials and refreshes expired access tokens.
//
// It keeps no per-request state and is safe for concurrent use.
type Guard struct {
	provider Provider
	logger   *log.Logger
	now      func() time.Time
}

// NewGuard creates a guard around provider.
func NewGuard(opts GuardOpts) *Guard {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Guard{
		provider: opts.Provider,
		logger:   shared.WithLogger(opts.Logger, "component", "guard"),
		now:      opts.Now,
	}
}

// Authenticate runs the probe, refresh-once, retry-once sequence for cred.
//
// The returned error always wraps one of [ErrMissingCredential], [ErrInvalidRefreshToken] or [ErrUpstreamUnavailable].
func (g *Guard) Authenticate(ctx context.Context, cred Credential) (*Outcome, error) {
	if !cred.Complete() {
		g.logger.Debug("credential incomplete", "access_token", cred.AccessToken != "", "refresh_token", cred.RefreshToken != "")
		return nil, ErrMissingCredential
	}

	user, err := g.provider.CurrentUser(ctx, cred.AccessToken)
	if err == nil {
		g.logger.Debug("access token valid", "user", user.ID)
		return &Outcome{Identity: user, Credential: cred}, nil
	}
	if !errors.Is(err, shared.ErrTokenExpired) {
		g.logger.Warn("identity probe failed", "error", err)
		return nil, fmt.Errorf("%w: identity probe: %v", ErrUpstreamUnavailable, err)
	}

	g.logger.Info("access token rejected, refreshing")
	refreshed, rotated, err := g.refresh(ctx, cred)
	if err != nil {
		return nil, err
	}

	user, err = g.provider.CurrentUser(ctx, refreshed.AccessToken)
	if err != nil {
		g.logger.Warn("probe after refresh failed", "error", err)
		return nil, fmt.Errorf("%w: probe after refresh: %v", ErrUpstreamUnavailable, err)
	}

	g.logger.Info("access token refreshed", "user", user.ID, "rotated", rotated)
	return &Outcome{Identity: user, Credential: refreshed, Refreshed: true, RefreshRotated: rotated}, nil
}

// Refresh trades cred's refresh token for a new access token without probing identity.
//
// Used by the explicit refresh route. Errors wrap [ErrMissingCredential], [ErrInvalidRefreshToken] or [ErrUpstreamUnavailable].
func (g *Guard) Refresh(ctx context.Context, cred Credential) (Credential, bool, error) {
	if cred.RefreshToken == "" {
		return Credential{}, false, ErrMissingCredential
	}
	return g.refresh(ctx, cred)
}

func (g *Guard) refresh(ctx context.Context, cred Credential) (Credential, bool, error) {
	grant, err := g.provider.Refresh(ctx, cred.RefreshToken)
	switch {
	case errors.Is(err, shared.ErrRefreshFailed):
		g.logger.Info("refresh token rejected", "error", err)
		return Credential{}, false, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	case err != nil:
		g.logger.Warn("refresh failed", "error", err)
		return Credential{}, false, fmt.Errorf("%w: refresh: %v", ErrUpstreamUnavailable, err)
	case grant == nil || grant.AccessToken == "":
		return Credential{}, false, fmt.Errorf("%w: refresh returned no access token", ErrUpstreamUnavailable)
	}

	next := Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    g.now().Add(ttlOrDefault(grant.ExpiresIn)),
	}

	rotated := grant.RefreshToken != "" && grant.RefreshToken != cred.RefreshToken
	if rotated {
		next.RefreshToken = grant.RefreshToken
	}
	return next, rotated, nil
}
