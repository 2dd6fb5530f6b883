package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/auth"
	"github.com/desertthunder/spotproxy/internal/services"
	"github.com/desertthunder/spotproxy/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several paths.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

var _ Router = (*BasicRouter)(nil)

const shutdownTimeout = 5 * time.Second

// Options configures a [Server]. Events and Journal are optional.
type Options struct {
	Config  *shared.Config
	Service services.Service
	Events  EventRecorder
	Journal Pinger
	Logger  *log.Logger
	Now     func() time.Time
}

// Server is the proxy's HTTP server.
type Server struct {
	addr    string
	router  *BasicRouter
	metrics *Metrics
	logger  *log.Logger
}

// New wires guard, exchanger, handlers and middleware around opts.Service.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: server config is required", shared.ErrMissingConfig)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("%w: provider service is required", shared.ErrMissingArgument)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cfg := opts.Config
	cookies := CookiePolicy{Secure: cfg.SecureCookies(), Now: opts.Now}
	metrics := NewMetrics()
	j := journal{recorder: opts.Events, metrics: metrics}

	guard := auth.NewGuard(auth.GuardOpts{Provider: opts.Service, Logger: opts.Logger, Now: opts.Now})
	exchanger := auth.NewExchanger(auth.ExchangerOpts{
		Provider:   opts.Service,
		ShowDialog: cfg.Credentials.Spotify.ShowDialog,
		Logger:     opts.Logger,
		Now:        opts.Now,
	})

	router := NewBasicRouter()
	router.Use(
		Recover(opts.Logger),
		RequestID(),
		Logging(opts.Logger),
		CORS(cfg.Server.CORSOrigin),
		RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		metrics.Middleware(),
	)

	router.Handle(http.MethodGet, "/healthz", NewHealthHandler(cfg.Env, opts.Journal, opts.Now))
	router.Handle(http.MethodGet, "/metrics", metrics.Handler())

	NewOAuthHandler(exchanger, guard, cookies, j).Register(router)
	NewAPIHandler(opts.Service).Register(router.With(RequireAuth(guard, cookies, j)))
	router.Handler(NewPageHandler(cfg.Server.StaticDir, cookies))

	return &Server{
		addr:    cfg.Server.Addr(),
		router:  router,
		metrics: metrics,
		logger:  shared.WithLogger(opts.Logger, "component", "server"),
	}, nil
}

// Handler returns the fully wired handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return s.addr
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.Run] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown incomplete: %w", err)
	}
	s.logger.Info("stopped")
	return nil
}
