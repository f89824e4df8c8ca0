package db

import (
	"context"
	"fmt"

	"campus-canteen/internal/xpkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
	Ctx  context.Context
	dsn  string
}

func DSN(dbCfg *config.Postgres) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.Database,
	)
}

// Start opens a connection pool and verifies it with a ping.
func Start(ctx context.Context, dbCfg *config.Postgres) (*DB, error) {
	dsn := DSN(dbCfg)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if dbCfg.MaxConns > 0 {
		poolCfg.MaxConns = dbCfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		Pool: pool,
		Ctx:  ctx,
		dsn:  dsn,
	}, nil
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.Pool
}

// DSN returns the connection string, used by listeners that need a dedicated
// connection outside the pool.
func (db *DB) DSN() string {
	return db.dsn
}

func (db *DB) IsAlive() error {
	if db.Pool == nil {
		return fmt.Errorf("pool is not initialized")
	}
	return db.Pool.Ping(db.Ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	return nil
}
