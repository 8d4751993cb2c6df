// Package migrations applies the embedded database schema migrations.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/facilimate/tquery/log"
)

//go:embed postgres/*.sql
var migrationsFS embed.FS

// Run applies all pending migrations from the embedded files. A database
// already at the latest version is not an error.
func Run(databaseURL string, logger log.Logger) error {
	source, err := iofs.New(migrationsFS, "postgres")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			logger.Warn("error closing migration source", "error", cerr)
		}
	}()

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn("error closing migration db connection", "error", cerr)
		}
	}()
	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database for migration: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: postgres.DefaultMigrationsTable,
	})
	if err != nil {
		return fmt.Errorf("could not create postgres driver instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &logAdapter{logger: logger}

	err = m.Up()
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("error closing migration source", "error", srcErr)
	}
	if dbErr != nil {
		logger.Warn("error closing migration db connection", "error", dbErr)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no database schema changes to apply")
	} else {
		logger.Info("database migrations completed")
	}
	return nil
}

type logAdapter struct {
	logger log.Logger
}

func (l *logAdapter) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *logAdapter) Verbose() bool {
	return false
}
