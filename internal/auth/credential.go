package auth

import (
	"fmt"
	"time"

	"github.com/desertthunder/spotproxy/internal/services"
	"github.com/desertthunder/spotproxy/internal/shared"
)

// DefaultTokenTTL is assumed when the provider omits expires_in.
const DefaultTokenTTL = time.Hour

// Credential is the token pair a browser carries in its cookies.
//
// ExpiresAt is zero when the credential was rebuilt from cookies, which do not carry it.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Complete reports whether both tokens are present.
func (c Credential) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// TTL returns the remaining lifetime at now, never negative.
func (c Credential) TTL(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}

// Outcome is a successful authentication.
type Outcome struct {
	Identity   *services.SpotifyUser
	Credential Credential
	// Refreshed is set when Credential differs from the input and must be persisted.
	Refreshed bool
	// RefreshRotated is set when the provider issued a new refresh token.
	RefreshRotated bool
}

// AuthState is the anti-CSRF value bound to one login attempt.
type AuthState string

// NewAuthState reads a fresh state from crypto/rand.
func NewAuthState() (AuthState, error) {
	s, err := shared.GenerateState(shared.StateLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return AuthState(s), nil
}

// Valid reports whether s has the expected length and alphabet.
func (s AuthState) Valid() bool {
	return len(s) == shared.StateLength && shared.IsAlphanumeric(string(s))
}

func (s AuthState) String() string {
	return string(s)
}

// ttlOrDefault normalises a grant's lifetime.
func ttlOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTokenTTL
	}
	return d
}
