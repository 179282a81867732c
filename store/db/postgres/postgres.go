package postgres

import (
	"context"
	"database/sql"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/timescope/internal/profile"
	"github.com/hrygo/timescope/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection with the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	if err := pgDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	driver := DB{db: pgDB, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate prepares the range history schema.
func (d *DB) Migrate(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS range_history (
		id BIGSERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		definition TEXT NOT NULL,
		start_ms BIGINT NOT NULL,
		end_ms BIGINT NOT NULL,
		timezone TEXT NOT NULL,
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to create range_history table")
	}
	return nil
}
