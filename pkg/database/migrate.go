package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marshallshelly/pebble-orm/pkg/migration"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID keys the advisory lock held while migrating, so replicas
// starting together apply each file once.
const migrationLockID int64 = 0x79616d6462 // "yamdb"

// loadMigrations reads the embedded files named <version>_<name>.sql in version order.
func loadMigrations() ([]migration.Migration, error) {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	migrations := make([]migration.Migration, 0, len(files))
	for _, file := range files {
		base := strings.TrimSuffix(strings.TrimPrefix(file, "migrations/"), ".sql")
		version, name, ok := strings.Cut(base, "_")
		if !ok || version == "" || name == "" {
			return nil, fmt.Errorf("migration %s: file name must be <version>_<name>.sql", file)
		}

		body, err := migrationFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}

		migrations = append(migrations, migration.Migration{
			Version: version,
			Name:    name,
			UpSQL:   string(body),
		})
	}

	return migrations, nil
}

// Migrate applies embedded migrations not yet recorded in schema_migrations.
// Each file runs in its own transaction under a Postgres advisory lock.
func Migrate(ctx context.Context, db PgxIface, log *zap.Logger) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	// advisory locks are per session: lock, apply and unlock must share one connection
	config := db.Pool().Config()
	config.MaxConns = 1
	config.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer pool.Close()

	executor := migration.NewExecutor(pool, "").WithLockID(migrationLockID)

	if err := executor.Initialize(ctx); err != nil {
		return err
	}

	if err := executor.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := executor.Unlock(context.Background()); err != nil {
			log.Warn("Failed to release migration lock", zap.Error(err))
		}
	}()

	// read after the lock so a replica that waited sees what the other applied
	applied, err := executor.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, record := range applied {
		done[record.Version] = true
	}

	for _, m := range migrations {
		if done[m.Version] {
			continue
		}

		if err := executor.Apply(ctx, m, false); err != nil {
			log.Error("Migration failed", zap.String("version", m.Version), zap.Error(err))
			return fmt.Errorf("apply migration %s_%s: %w", m.Version, m.Name, err)
		}

		log.Info("Migration applied", zap.String("version", m.Version), zap.String("name", m.Name))
	}

	return nil
}
