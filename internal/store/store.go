// Package store loads the emitted record streams into a relational database.
package store

import (
	"context"
	"time"

	"github.com/sells-group/osm-audit/internal/model"
)

// LoadRun records one table load.
type LoadRun struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Table      string    `json:"table"`
	Rows       int64     `json:"rows"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store is a relational target for the five output tables.
type Store interface {
	// Migrate creates the output tables and the load_runs table if missing.
	Migrate(ctx context.Context) error
	// Reset drops the output tables, children first.
	Reset(ctx context.Context) error
	// Insert writes typed rows into t and returns the number written.
	Insert(ctx context.Context, t model.Table, rows [][]any) (int64, error)
	// RecordLoad appends a load_runs entry.
	RecordLoad(ctx context.Context, run LoadRun) error
	// ListLoads returns the most recent load_runs entries first.
	ListLoads(ctx context.Context, limit int) ([]LoadRun, error)
	Close() error
}
