// Package db selects the store driver for the configured database.
package db

import (
	"github.com/pkg/errors"

	"github.com/Study-Buddy-University/study-buddy-backend/internal/profile"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
	"github.com/Study-Buddy-University/study-buddy-backend/store/db/postgres"
	"github.com/Study-Buddy-University/study-buddy-backend/store/db/sqlite"
)

// NewDriver creates a new store driver based on the profile.
func NewDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported driver: %s", profile.Driver)
	}
}
