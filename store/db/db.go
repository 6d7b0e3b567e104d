// Package db handles the database access and schema management.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/sagely/internal/profile"
	"github.com/hrygo/sagely/store"
	"github.com/hrygo/sagely/store/db/postgres"
	"github.com/hrygo/sagely/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
