package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datachat-inc/datachat-engine/pkg/config"
)

// open builds a pgx connection pool for the given database, verifying it
// with a ping before returning. An empty database falls back to the
// configured default.
func open(ctx context.Context, cfg *config.DatasourceConfig, database string) (*pgxpool.Pool, error) {
	if database == "" {
		database = cfg.Database
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		url.PathEscape(database),
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
