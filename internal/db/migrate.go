package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"contractorvet/pkg/config"
	pkgdb "contractorvet/pkg/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus holds information about database migration state
type MigrationStatus struct {
	CurrentVersion uint
	LatestVersion  uint
	Dirty          bool
	Pending        bool
}

type Migrator struct {
	m      *migrate.Migrate
	latest uint
	logger *zap.Logger
}

// NewMigrator connects golang-migrate to the database through the pgx5 driver.
func NewMigrator(cfg config.DBConfig, logger *zap.Logger) (*Migrator, error) {
	return newMigrator(pkgdb.DSN("pgx5", cfg), logger)
}

// NewMigratorURL 接受 postgres:// 连接串，集成测试用
func NewMigratorURL(dsn string, logger *zap.Logger) (*Migrator, error) {
	return newMigrator(migrateURL(dsn), logger)
}

func newMigrator(dsn string, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	latest, err := latestVersion(src)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{m: m, latest: latest, logger: logger}, nil
}

// Up runs all pending migrations
func (mg *Migrator) Up() error {
	mg.logger.Info("Applying migrations", zap.Uint("latest", mg.latest))
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Error("Migration up failed", zap.Error(err))
		return err
	}
	mg.logger.Info("Migrations applied")
	return nil
}

// Down rolls back the given number of steps.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	mg.logger.Info("Rolling back migrations", zap.Int("steps", steps))
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Error("Migration down failed", zap.Error(err))
		return err
	}
	return nil
}

// Status returns the current migration status
func (mg *Migrator) Status() (*MigrationStatus, error) {
	version, dirty, err := mg.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, err
	}

	return &MigrationStatus{
		CurrentVersion: version,
		LatestVersion:  mg.latest,
		Dirty:          dirty,
		Pending:        version < mg.latest,
	}, nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateURL 把 postgres/postgresql scheme 换成 golang-migrate 的 pgx5
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no migrations found: %w", err)
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
