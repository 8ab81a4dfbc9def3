// Package db provides the record store driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/narrinai/companion/internal/profile"
	"github.com/narrinai/companion/store"
	"github.com/narrinai/companion/store/db/airtable"
	"github.com/narrinai/companion/store/db/sqlite"
)

// NewDBDriver creates a new record store driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "airtable":
		return airtable.NewDriver(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q", profile.Driver)
	}
}
