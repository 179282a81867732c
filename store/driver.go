package store

import (
	"context"
	"database/sql"
)

// RangeHistory is one applied time range, persisted for recall.
type RangeHistory struct {
	ID         int64  `json:"id"`
	UID        string `json:"uid"`
	Label      string `json:"label,omitempty"`
	Definition string `json:"definition"` // TimeRangeDefinition JSON
	StartMs    int64  `json:"startMs"`
	EndMs      int64  `json:"endMs"`
	Timezone   string `json:"timezone"`
	CreatedTs  int64  `json:"createdTs"`
}

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate prepares the schema.
	Migrate(ctx context.Context) error

	// RangeHistory model related methods.
	CreateRangeHistory(ctx context.Context, create *RangeHistory) error
	ListRangeHistory(ctx context.Context, limit int) ([]*RangeHistory, error)
	PruneRangeHistory(ctx context.Context, keep int) error
}
