package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/timescope/internal/profile"
	"github.com/hrygo/timescope/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the embedded SQLite database at the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	// A single writer keeps modernc's file locking happy.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	driver := DB{db: sqliteDB, profile: profile}
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
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		definition TEXT NOT NULL,
		start_ms INTEGER NOT NULL,
		end_ms INTEGER NOT NULL,
		timezone TEXT NOT NULL,
		created_ts INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	)`
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to create range_history table")
	}
	return nil
}
