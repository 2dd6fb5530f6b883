package server

import (
	"net/http"
	"time"

	"github.com/desertthunder/spotproxy/internal/auth"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	StateCookie        = "spotify_auth_state"

	refreshTokenTTL = 30 * 24 * time.Hour
	stateTTL        = time.Hour
)

// CookiePolicy writes and reads the cookies that carry a user's credential.
//
// Every cookie is HttpOnly, SameSite=Lax and scoped to "/". Secure is set when the policy says so.
type CookiePolicy struct {
	Secure bool
	Now    func() time.Time
}

func (p CookiePolicy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p CookiePolicy) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	if maxAge < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		return c
	}

	c.MaxAge = int(maxAge.Seconds())
	c.Expires = p.now().Add(maxAge)
	return c
}

// SetAccessToken writes the access token with Max-Age equal to its remaining lifetime.
func (p CookiePolicy) SetAccessToken(w http.ResponseWriter, cred auth.Credential) {
	ttl := cred.TTL(p.now()).Round(time.Second)
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	http.SetCookie(w, p.cookie(AccessTokenCookie, cred.AccessToken, ttl))
}

func (p CookiePolicy) SetRefreshToken(w http.ResponseWriter, cred auth.Credential) {
	http.SetCookie(w, p.cookie(RefreshTokenCookie, cred.RefreshToken, refreshTokenTTL))
}

// SetCredential writes both token cookies.
func (p CookiePolicy) SetCredential(w http.ResponseWriter, cred auth.Credential) {
	p.SetAccessToken(w, cred)
	p.SetRefreshToken(w, cred)
}

// ClearCredential expires both token cookies.
func (p CookiePolicy) ClearCredential(w http.ResponseWriter) {
	http.SetCookie(w, p.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, p.cookie(RefreshTokenCookie, "", -1))
}

func (p CookiePolicy) SetState(w http.ResponseWriter, state auth.AuthState) {
	http.SetCookie(w, p.cookie(StateCookie, state.String(), stateTTL))
}

func (p CookiePolicy) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, p.cookie(StateCookie, "", -1))
}

// ReadCredential rebuilds a credential from the request cookies. ExpiresAt is always zero.
func (p CookiePolicy) ReadCredential(r *http.Request) auth.Credential {
	return auth.Credential{
		AccessToken:  cookieValue(r, AccessTokenCookie),
		RefreshToken: cookieValue(r, RefreshTokenCookie),
	}
}

func (p CookiePolicy) ReadState(r *http.Request) auth.AuthState {
	return auth.AuthState(cookieValue(r, StateCookie))
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
