package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotproxy/internal/models"
	"github.com/desertthunder/spotproxy/internal/shared"
)

const defaultRecentLimit = 20

// AuthEventRepository implements [models.Journal] for [models.AuthEvent] persistence.
type AuthEventRepository struct {
	db *sql.DB
}

var _ models.Journal[*models.AuthEvent] = (*AuthEventRepository)(nil)

// NewAuthEventRepository creates a new [AuthEventRepository] with the given database connection
func NewAuthEventRepository(db *sql.DB) *AuthEventRepository {
	return &AuthEventRepository{db: db}
}

// Record inserts event with a generated ID.
func (r *AuthEventRepository) Record(ctx context.Context, event *models.AuthEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO auth_events (id, kind, outcome, user_id, path, remote_addr, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		id, string(event.Kind()), event.Outcome(), event.UserID(), event.Path(), event.RemoteAddr(), event.CreatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert auth event: %w", err)
	}

	event.SetID(id)
	return nil
}

// Recent lists up to limit events, newest first. Non-positive limits use a default of 20.
func (r *AuthEventRepository) Recent(ctx context.Context, limit int) ([]*models.AuthEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	query := `
		SELECT id, kind, outcome, user_id, path, remote_addr, created_at
		FROM auth_events
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuthEvent
	for rows.Next() {
		var (
			id         string
			kind       string
			outcome    string
			userID     string
			path       string
			remoteAddr string
			createdAt  time.Time
		)

		if err := rows.Scan(&id, &kind, &outcome, &userID, &path, &remoteAddr, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan auth event: %w", err)
		}

		event := models.NewAuthEvent(models.EventKind(kind), outcome).WithUser(userID).WithRequest(path, remoteAddr)
		event.SetID(id)
		event.SetCreatedAt(createdAt)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

// Count returns the number of events matching criteria.
//
// Supported keys: "kind" ([models.EventKind] or string), "outcome" (string), "since" ([time.Time]).
func (r *AuthEventRepository) Count(ctx context.Context, criteria map[string]any) (int, error) {
	query := "SELECT COUNT(*) FROM auth_events WHERE 1 = 1"
	args := []any{}

	switch kind := criteria["kind"].(type) {
	case models.EventKind:
		query += " AND kind = ?"
		args = append(args, string(kind))
	case string:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, kind)
		}
	}

	if outcome, ok := criteria["outcome"].(string); ok && outcome != "" {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}

	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, since.UTC())
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count auth events: %w", err)
	}
	return count, nil
}

// Prune deletes events created before cutoff and returns how many were removed.
func (r *AuthEventRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM auth_events WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune auth events: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
