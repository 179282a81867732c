package sqlite

import (
	"context"
	"fmt"

	"github.com/hrygo/timescope/store"
)

func (d *DB) CreateRangeHistory(ctx context.Context, create *store.RangeHistory) error {
	stmt := `INSERT INTO range_history (uid, label, definition, start_ms, end_ms, timezone)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.Label, create.Definition,
		create.StartMs, create.EndMs, create.Timezone,
	).Scan(&create.ID, &create.CreatedTs); err != nil {
		return fmt.Errorf("failed to create range history: %w", err)
	}
	return nil
}

func (d *DB) ListRangeHistory(ctx context.Context, limit int) ([]*store.RangeHistory, error) {
	stmt := `SELECT id, uid, label, definition, start_ms, end_ms, timezone, created_ts
		FROM range_history
		ORDER BY created_ts DESC, id DESC
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list range history: %w", err)
	}
	defer rows.Close()

	var list []*store.RangeHistory
	for rows.Next() {
		entry := &store.RangeHistory{}
		if err := rows.Scan(
			&entry.ID, &entry.UID, &entry.Label, &entry.Definition,
			&entry.StartMs, &entry.EndMs, &entry.Timezone, &entry.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan range history: %w", err)
		}
		list = append(list, entry)
	}
	return list, rows.Err()
}

func (d *DB) PruneRangeHistory(ctx context.Context, keep int) error {
	stmt := `DELETE FROM range_history WHERE id NOT IN (
		SELECT id FROM range_history ORDER BY created_ts DESC, id DESC LIMIT ?
	)`
	if _, err := d.db.ExecContext(ctx, stmt, keep); err != nil {
		return fmt.Errorf("failed to prune range history: %w", err)
	}
	return nil
}
