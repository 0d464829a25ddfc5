package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const (
	dialect = "postgres"
	dir     = "migrations"
)

// Schema fragments, one per table group, applied in file-name order.
//
//go:embed migrations/*.sql
var migrations embed.FS

// gooseLogger routes goose progress output through zap.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (g gooseLogger) Printf(format string, v ...any) { g.log.Infof(format, v...) }
func (g gooseLogger) Fatalf(format string, v ...any) { g.log.Fatalf(format, v...) }

// EnsureMigrated applies every pending embedded migration.
func EnsureMigrated(db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: log.Sugar()})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	before, err := goose.GetDBVersion(db)
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("read schema version: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Int64("from_version", before),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("migrate: %w", err)
	}

	after, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if after == before {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("msg", "schema already up to date"),
			zap.Int64("version", after),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("from_version", before),
		zap.Int64("to_version", after),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Files lists the embedded migration file names in apply order.
func Files() ([]string, error) {
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
