// Package migration applies the database schema on startup. Postgres goes
// through versioned SQL migrations; the lighter dialects used in development
// fall back to gorm's AutoMigrate.
package migration

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"

	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	"github.com/wagedesk/wagedesk/internal/config"
	esttdomain "github.com/wagedesk/wagedesk/internal/establishment/domain"
	ledgerdomain "github.com/wagedesk/wagedesk/internal/ledger/domain"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Run brings the schema up to date.
func Run(db *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration")

	if cfg.DBType != "postgres" {
		log.Info("applying schema via automigrate", zap.String("dialect", cfg.DBType))
		return db.AutoMigrate(
			&esttdomain.Establishment{},
			&certdomain.Certificate{},
			&ledgerdomain.Entry{},
		)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, cfg.DBName, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	log.Info("schema up to date", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
