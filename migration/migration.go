package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

//go:embed mysql/*.sql
var mysqlFS embed.FS

// Migrators maps a migration version to its migrator. Version "auto" builds
// the schema from the entities directly and is meant for sqlite and local
// development.
var Migrators = map[string]func(context.Context) error{
	"auto": AutoMigrate,
	"sql":  Migrate,
}

// Migrate applies every pending sql migration embedded in the binary. Only
// mysql is supported.
func Migrate(ctx context.Context) error {
	cfg := xcontext.Configs(ctx).Database
	if cfg.Driver != "mysql" {
		return fmt.Errorf("sql migrations are not supported on %s", cfg.Driver)
	}

	db, err := xcontext.DB(ctx).DB()
	if err != nil {
		return err
	}

	source, err := iofs.New(mysqlFS, "mysql")
	if err != nil {
		return err
	}

	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.Database, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}

	xcontext.Logger(ctx).Infof("Database is at version %d (dirty=%v)", version, dirty)
	return nil
}

// AutoMigrate creates or updates the schema with the latest version of
// entities.
func AutoMigrate(ctx context.Context) error {
	return entity.MigrateTable(ctx)
}
