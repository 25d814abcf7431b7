package sqliterepo

import (
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-token-server/clients/sqliterepo/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations applies any pending schema migrations using the migration
// files embedded in the binary.
func (s *Store) ApplyMigrations() error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "[Store.ApplyMigrations] sqlite.WithInstance")
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return errors.Wrap(err, "[Store.ApplyMigrations] iofs.New")
	}

	instance, err := migrate.NewWithInstance("iofs", src, "", driver)
	if err != nil {
		return errors.Wrap(err, "[Store.ApplyMigrations] migrate.NewWithInstance")
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "[Store.ApplyMigrations] instance.Up")
	}
	return nil
}
