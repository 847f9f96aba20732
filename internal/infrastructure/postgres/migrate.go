package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/internal/config"
)

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// RunMigrations applies pending migrations when enabled in configuration.
func RunMigrations(cfg *config.Config, logger *zap.Logger) error {
	if cfg == nil || !cfg.Migrations.Enabled {
		return nil
	}
	return Migrate(cfg.Database, cfg.Migrations.Path, DirectionUp, 0, logger)
}

// Migrate moves the schema in the given direction. steps limits how many
// migrations run; zero means all of them.
func Migrate(cfg config.DatabaseConfig, path, direction string, steps int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if steps < 0 {
		return fmt.Errorf("migration steps must not be negative")
	}

	sqlDB, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return err
	}

	sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(path))
	m, err := migrate.NewWithDatabaseInstance(sourceURL, cfg.Name, driver)
	if err != nil {
		return err
	}
	defer m.Close()

	switch {
	case steps > 0 && direction == DirectionUp:
		err = m.Steps(steps)
	case steps > 0:
		err = m.Steps(-steps)
	case direction == DirectionUp:
		err = m.Up()
	default:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return verr
	}
	logger.Info("database migrations applied",
		zap.String("direction", direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}
