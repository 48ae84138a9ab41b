// Package backend opens the record store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/insurtree/internal/config"
	"github.com/dgallion1/insurtree/internal/store"
	"github.com/dgallion1/insurtree/internal/store/memory"
	"github.com/dgallion1/insurtree/internal/store/remote"
	"github.com/dgallion1/insurtree/internal/store/sqlstore"
)

func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreEngine {
	case "", "memory":
		return memory.New(), nil
	case sqlstore.EnginePostgres, sqlstore.EngineSQLite:
		return sqlstore.New(ctx, sqlstore.Config{
			Engine:        cfg.StoreEngine,
			URI:           cfg.StoreURI,
			Migrate:       cfg.StoreMigrate,
			ExportMetrics: cfg.StoreMetrics,
			Log:           log,
		})
	case "remote":
		return remote.NewClient(cfg.RemoteURL, cfg.RemoteAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown store engine %q", cfg.StoreEngine)
	}
}
