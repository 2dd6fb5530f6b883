package main

import (
	"context"
	"fmt"
	"net"

	"github.com/desertthunder/spotproxy/internal/server"
	"github.com/desertthunder/spotproxy/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the proxy until ctx is canceled (SIGINT or SIGTERM from main).
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = int(port)
	}
	if level := cmd.String("log-level"); level != "" {
		if err := shared.ParseLogLevel(r.logger, level); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
	}
	if config.Env == shared.EnvDevelopment {
		r.logger.Info("running in development mode", "secure_cookies", config.SecureCookies())
	}

	if err := config.Validate(); err != nil {
		return err
	}

	svc, err := r.spotify(config)
	if err != nil {
		return err
	}

	opts := server.Options{Config: config, Service: svc, Logger: r.logger}

	store, err := r.openStore(ctx, config)
	switch {
	case err != nil:
		r.logger.Warn("auth journal disabled", "path", config.Database.Path, "error", err)
	case store == nil:
		r.logger.Warn("no database path configured, auth journal disabled")
	default:
		defer store.Close()
		opts.Events = store.Events
		opts.Journal = store
		r.logger.Info("auth journal enabled", "path", config.Database.Path)
	}

	srv, err := server.New(opts)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr(), err)
	}

	if cmd.Bool("open") {
		loginURL := "http://" + ln.Addr().String() + "/auth/login"
		if err := r.openBrowser(loginURL); err != nil {
			r.logger.Warn("could not open browser", "url", loginURL, "error", err)
		}
	}

	return srv.Serve(ctx, ln)
}
