package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	"github.com/datachat-inc/datachat-engine/pkg/config"
)

// queryExecutor runs bounded SELECT statements over a pgx pool.
type queryExecutor struct {
	pool *pgxpool.Pool
}

// NewQueryExecutor creates a PostgreSQL query executor.
func NewQueryExecutor(ctx context.Context, cfg *config.DatasourceConfig, database string) (datasource.QueryExecutor, error) {
	pool, err := open(ctx, cfg, database)
	if err != nil {
		return nil, err
	}
	return &queryExecutor{pool: pool}, nil
}

// Query wraps the statement in a derived table with a LIMIT so even
// generated SQL without one cannot return unbounded results.
func (e *queryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	limit = datasource.EffectiveLimit(limit)
	bounded := fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d", sqlQuery, limit)

	rows, err := e.pool.Query(ctx, bounded)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	results, columns, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan query results: %w", err)
	}

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     results,
		RowCount: len(results),
	}, nil
}

func (e *queryExecutor) Close() error {
	e.pool.Close()
	return nil
}

var _ datasource.QueryExecutor = (*queryExecutor)(nil)

// collectRows reads all rows into maps keyed by column name. [16]byte
// values (uuid) and []byte values are converted to strings so results
// serialize cleanly.
func collectRows(rows pgx.Rows) ([]map[string]any, []string, error) {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var results []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("read row values: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			case [16]byte:
				row[col] = fmt.Sprintf("%x-%x-%x-%x-%x", v[0:4], v[4:6], v[6:8], v[8:10], v[10:16])
			default:
				row[col] = v
			}
		}
		results = append(results, row)
	}
	return results, columns, rows.Err()
}
