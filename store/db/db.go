// Package db selects the range-history database driver.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/timescope/internal/profile"
	"github.com/hrygo/timescope/store"
	"github.com/hrygo/timescope/store/db/postgres"
	"github.com/hrygo/timescope/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile.
// SQLite is the default embedded backend; PostgreSQL serves shared
// deployments.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
