package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotproxy/internal/formatter"
	"github.com/desertthunder/spotproxy/internal/models"
	"github.com/desertthunder/spotproxy/internal/shared"
	"github.com/desertthunder/spotproxy/internal/ui"
	"github.com/urfave/cli/v3"
)

type eventJSON struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Outcome    string    `json:"outcome"`
	UserID     string    `json:"user_id,omitempty"`
	Path       string    `json:"path,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEventJSON(events []*models.AuthEvent) []eventJSON {
	out := make([]eventJSON, len(events))
	for i, e := range events {
		out[i] = eventJSON{
			ID:         e.ID(),
			Kind:       string(e.Kind()),
			Outcome:    e.Outcome(),
			UserID:     e.UserID(),
			Path:       e.Path(),
			RemoteAddr: e.RemoteAddr(),
			CreatedAt:  e.CreatedAt(),
		}
	}
	return out
}

// Events lists, prunes or watches the auth journal.
func (r *Runner) Events(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := r.openStore(ctx, config)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%w: database.path must be set to read the journal", shared.ErrMissingConfig)
	}
	defer store.Close()

	if age := cmd.Duration("prune"); age > 0 {
		n, err := store.Events.Prune(ctx, time.Now().Add(-age))
		if err != nil {
			return err
		}
		r.logger.Info("pruned auth events", "older_than", age, "deleted", n)
	}

	limit := int(cmd.Int("limit"))

	if cmd.Bool("follow") {
		model := ui.NewModel(ctx, ui.ModelOpts{Source: store.Events, Limit: limit})
		if _, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("error running journal viewer: %w", err)
		}
		return nil
	}

	events, err := store.Events.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if path := cmd.String("export"); path != "" {
		format, err := formatter.ParseFormat(cmd.String("format"), path)
		if err != nil {
			return err
		}
		if err := formatter.WriteExport(events, format, path, time.Now()); err != nil {
			return err
		}
		r.logger.Info("exported auth events", "path", path, "format", format, "count", len(events))
		return r.writePlain("%s %d events to %s\n", ui.Styles().OK("✓ Exported"), len(events), path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(toEventJSON(events), true)
	}

	if len(events) == 0 {
		return r.writePlain("%s\n", ui.Styles().Help("No auth events recorded yet."))
	}
	return r.writePlain("%s\n", ui.EventTable(events))
}
