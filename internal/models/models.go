// package models defines the data model for the proxy's auth journal
package models

import (
	"context"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Journal defines append-only data access for a model type.
type Journal[T Model] interface {
	Record(ctx context.Context, model T) error                       // Record inserts a new entry, assigning its ID
	Recent(ctx context.Context, limit int) ([]T, error)              // Recent lists entries newest first
	Count(ctx context.Context, criteria map[string]any) (int, error) // Count returns how many entries match criteria
}
