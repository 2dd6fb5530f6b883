package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotproxy/internal/services"
	"github.com/desertthunder/spotproxy/internal/shared"
	"github.com/desertthunder/spotproxy/internal/ui"
	"github.com/urfave/cli/v3"
)

// Status checks a running proxy through its /healthz endpoint.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	api := r.api
	if api == nil {
		api = services.NewAPIService(cmd.String("url"), r.httpClient)
	}

	r.logger.Debug("checking proxy health", "url", cmd.String("url"))
	health, err := api.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(health, true)
	}

	p := ui.Styles()
	r.writePlain("%s\n", p.OK("✓ Proxy is healthy"))
	r.writePlain("Status:  %s\n", health.Status)
	r.writePlain("Env:     %s\n", health.Env)
	r.writePlain("Uptime:  %s\n", health.Uptime)
	if health.Journal {
		r.writePlain("Journal: %s\n", p.OK("enabled"))
	} else {
		r.writePlain("Journal: %s\n", p.Warn("disabled"))
	}
	return nil
}
