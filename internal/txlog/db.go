package txlog

import (
	"context"
	"database/sql"
	"embed"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	migrate "github.com/rubenv/sql-migrate"
	"github/chapool/yield-vault/internal/config"

	// Import postgres driver for database/sql package
	_ "github.com/lib/pq"
)

const migrationsTable = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationSource returns the embedded ledger migrations.
func MigrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

// Open connects to postgres and applies the pool settings.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return db, nil
}

// Migrate applies all pending up migrations and returns how many ran.
func Migrate(db *sql.DB) (int, error) {
	migrate.SetTable(migrationsTable)

	n, err := migrate.Exec(db, "postgres", MigrationSource(), migrate.Up)
	if err != nil {
		return n, errors.Wrap(err, "failed to apply migrations")
	}

	return n, nil
}

// RegisterStats exposes connection pool stats of db on reg.
func RegisterStats(reg prometheus.Registerer, name string, db *sql.DB) error {
	if err := reg.Register(sqlstats.NewStatsCollector(name, db)); err != nil {
		return errors.Wrap(err, "failed to register db stats collector")
	}
	return nil
}
