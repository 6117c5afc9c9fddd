package database

import (
	"context"
	"errors"
	"fmt"

	"gcal-connect-api/db/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// RunMigrations applies the embedded schema on startup when enabled.
// The statements are idempotent so reruns are safe.
func RunMigrations(ctx context.Context, db Querier, enabled bool, log *zap.Logger) error {
	log = log.With(zap.String("component", "migrations"))
	if !enabled {
		log.Info("skipping migrations (RUN_MIGRATIONS is not 'true')")
		return nil
	}

	log.Info("running database migrations")

	steps := []struct {
		name  string
		query string
	}{
		{"users schema", migrations.UsersSchemaUp},
	}

	for _, step := range steps {
		if _, err := db.Exec(ctx, step.query); err != nil {
			log.Error(step.name+" migration failed", zap.Error(err))
			return err
		}
		log.Info(step.name + " migration applied successfully")
	}

	return nil
}

// Migrate runs the versioned migrations with golang-migrate.
func Migrate(databaseURL string, dir Direction, log *zap.Logger) error {
	src, err := iofs.New(migrations.SQLFiles, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migration changes", zap.String("component", "migrations"), zap.String("direction", string(dir)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", verr)
	}
	log.Info("migrations applied",
		zap.String("component", "migrations"),
		zap.String("direction", string(dir)),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}
