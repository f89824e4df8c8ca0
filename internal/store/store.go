package store

import (
	"context"
	"fmt"

	"campus-canteen/internal/store/core"
	"campus-canteen/internal/store/memory"
	"campus-canteen/internal/store/postgres"
	"campus-canteen/internal/store/sqlite"
	"campus-canteen/internal/xpkg/config"
	"campus-canteen/internal/xpkg/db"
	xerrors "campus-canteen/internal/xpkg/errors"
	"campus-canteen/internal/xpkg/logger"
)

// Open builds the store backend selected in cfg.Store.
func Open(ctx context.Context, cfg *config.Config, mylog logger.Logger) (core.IStore, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		database, err := db.Start(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", xerrors.ErrDBConn, err)
		}
		s, err := postgres.Open(ctx, database, mylog)
		if err != nil {
			database.Close()
			return nil, err
		}
		return s, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Store.SQLitePath, mylog)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverMemory:
		return memory.New(mylog), nil
	}
	return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
}
