package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/services"
	"github.com/desertthunder/spotproxy/internal/shared"
)

// Authorizer builds authorize URLs and exchanges codes.
type Authorizer interface {
	AuthURL(state string, showDialog bool) string
	Exchange(ctx context.Context, code string) (*services.TokenGrant, error)
}

// ExchangerOpts configures an [Exchanger]. Nil fields fall back to defaults.
type ExchangerOpts struct {
	Provider   Authorizer
	ShowDialog bool
	Logger     *log.Logger
	Now        func() time.Time
}

// Exchanger runs the authorization-code login flow.
type Exchanger struct {
	provider   Authorizer
	showDialog bool
	logger     *log.Logger
	now        func() time.Time
}

// NewExchanger creates an exchanger around provider.
func NewExchanger(opts ExchangerOpts) *Exchanger {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Exchanger{
		provider:   opts.Provider,
		showDialog: opts.ShowDialog,
		logger:     shared.WithLogger(opts.Logger, "component", "login"),
		now:        opts.Now,
	}
}

// BeginLogin mints a fresh state and returns the provider's authorize URL bound to it.
//
// The caller stores the state (a short-lived cookie) and redirects the user-agent.
func (e *Exchanger) BeginLogin() (string, AuthState, error) {
	state, err := NewAuthState()
	if err != nil {
		return "", "", err
	}
	return e.provider.AuthURL(state.String(), e.showDialog), state, nil
}

// CompleteLogin validates the returned state against the stored one and exchanges code.
//
// A state mismatch fails before any upstream call.
func (e *Exchanger) CompleteLogin(ctx context.Context, code string, returned, stored AuthState) (Credential, error) {
	if returned == "" || stored == "" || subtle.ConstantTimeCompare([]byte(returned), []byte(stored)) != 1 {
		e.logger.Warn("state mismatch on callback", "returned", returned != "", "stored", stored != "")
		return Credential{}, ErrStateMismatch
	}

	if code == "" {
		return Credential{}, fmt.Errorf("%w: empty code", ErrInvalidAuthorizationCode)
	}

	grant, err := e.provider.Exchange(ctx, code)
	if err != nil {
		e.logger.Warn("code exchange failed", "error", err)
		return Credential{}, fmt.Errorf("%w: %v", ErrInvalidAuthorizationCode, err)
	}
	if grant.AccessToken == "" || grant.RefreshToken == "" {
		return Credential{}, fmt.Errorf("%w: incomplete token grant", ErrInvalidAuthorizationCode)
	}

	e.logger.Debug("code exchanged", "expires_in", grant.ExpiresIn)
	return Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    e.now().Add(ttlOrDefault(grant.ExpiresIn)),
	}, nil
}
