package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/repositories"
	"github.com/desertthunder/spotproxy/internal/services"
	"github.com/desertthunder/spotproxy/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	service     services.Service
	api         *services.APIService
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config and Service are normally resolved per command from the --config flag; setting them skips that.
type RunnerOpts struct {
	Config      *shared.Config
	Service     services.Service
	API         *services.APIService
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		service:     opts.Service,
		api:         opts.API,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, configCommand, eventsCommand, statusCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the injected config or resolves the --config path plus .env and environment overrides.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	config, err := shared.ResolveConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := shared.ParseLogLevel(r.logger, config.Log.Level); err != nil {
		r.logger.Warn("ignoring log level from config", "error", err)
	}
	return config, nil
}

// spotify returns the injected provider or builds the Spotify client from config.
func (r *Runner) spotify(config *shared.Config) (services.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	creds := config.Credentials.Spotify
	return services.NewSpotifyService(services.SpotifyOpts{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  creds.RedirectURI,
		AuthURL:      config.Spotify.AuthURL,
		TokenURL:     config.Spotify.TokenURL,
		BaseURL:      config.Spotify.APIURL,
		Timeout:      config.Spotify.UpstreamTimeout(),
	})
}

// openStore opens the journal when a database path is configured. A nil store means journaling is off.
func (r *Runner) openStore(ctx context.Context, config *shared.Config) (*repositories.Store, error) {
	if config.Database.Path == "" {
		return nil, nil
	}
	return repositories.Open(ctx, config.Database)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
