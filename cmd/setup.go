package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/spotproxy/internal/shared"
	"github.com/desertthunder/spotproxy/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the journal database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if config.Database.Path == "" {
		return fmt.Errorf("%w: database.path must be set", shared.ErrMissingConfig)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	store, err := r.openStore(ctx, config)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Events.Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to query journal: %w", err)
	}

	p := ui.Styles()
	r.writePlain("%s\n", p.OK("✓ Setup complete"))
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Database: %s (%d events)\n", config.Database.Path, count)
	if err := config.Validate(); err != nil {
		r.writePlain("%s\n", p.Warn(fmt.Sprintf("! %v", err)))
		r.writePlain("%s\n", p.Help("Set CLIENT_ID and CLIENT_SECRET in the config file or a .env file before running serve."))
	}
	return nil
}

// ConfigInit writes the example config file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	return r.writePlain("%s %s\n", ui.Styles().OK("✓ Config written to"), path)
}
