// Package server provides HTTP routing, middleware, and the OAuth and API handlers of the proxy.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [BasicRouter.With] derives a router for a group of routes that need extra middleware;
// the /api routes use it to sit behind [RequireAuth].
//
// # Middleware Chain
//
// Outer to inner: [Recover], [RequestID], [Logging], [CORS], [RateLimit], then [Metrics.Middleware].
// Guarded routes add [RequireAuth] last.
//
// # Cookies
//
// [CookiePolicy] owns the access_token, refresh_token and spotify_auth_state cookies.
// All are HttpOnly and SameSite=Lax; Secure follows configuration (always on in production).
//
// # OAuth Handler
//
// [OAuthHandler] serves /auth/login, /auth/callback, /auth/refresh and /auth/logout.
// /login and /callback are aliases that run the same state-validating handlers.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// [PageHandler] uses it for the landing page, the dashboard and static assets.
package server
