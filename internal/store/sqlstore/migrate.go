package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

func migrationDialect(engine string) (goose.Dialect, fs.FS, error) {
	var dialect goose.Dialect
	switch engine {
	case EnginePostgres:
		dialect = goose.DialectPostgres
	case EngineSQLite:
		dialect = goose.DialectSQLite3
	default:
		return "", nil, fmt.Errorf("no migrations for engine %q", engine)
	}
	dir, err := fs.Sub(migrations, "migrations/"+engine)
	if err != nil {
		return "", nil, err
	}
	return dialect, dir, nil
}

// Migrate brings the schema to target, or to the latest version when target is 0.
func Migrate(ctx context.Context, db *sql.DB, engine string, target int64, log *slog.Logger) error {
	dialect, dir, err := migrationDialect(engine)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, dir)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get %s db version: %w", engine, err)
	}
	log.Info("schema version", "engine", engine, "current", current, "target", target)

	switch {
	case target == 0:
		_, err = provider.Up(ctx)
	case target > current:
		_, err = provider.UpTo(ctx, target)
	case target < current:
		_, err = provider.DownTo(ctx, target)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", engine, err)
	}
	log.Info("migration done", "engine", engine)
	return nil
}

// MigrateURI opens uri, runs Migrate and closes the connection.
func MigrateURI(ctx context.Context, engine, uri string, target int64, log *slog.Logger) error {
	db, err := open(ctx, engine, uri, log)
	if err != nil {
		return err
	}
	defer db.Close()
	return Migrate(ctx, db, engine, target, log)
}
