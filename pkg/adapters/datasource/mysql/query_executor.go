package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	"github.com/datachat-inc/datachat-engine/pkg/config"
)

// queryExecutor runs bounded SELECT statements over a MySQL connection.
type queryExecutor struct {
	db *sql.DB
}

// NewQueryExecutor creates a MySQL query executor.
func NewQueryExecutor(ctx context.Context, cfg *config.DatasourceConfig, database string) (datasource.QueryExecutor, error) {
	db, err := open(ctx, cfg, database)
	if err != nil {
		return nil, err
	}
	return &queryExecutor{db: db}, nil
}

// Query wraps the statement in a derived table with a LIMIT so even
// generated SQL without one cannot return unbounded results.
func (e *queryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	limit = datasource.EffectiveLimit(limit)
	bounded := fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d", sqlQuery, limit)

	rows, err := e.db.QueryContext(ctx, bounded)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	results, columns, err := scanRows(rows)
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
	return e.db.Close()
}

var _ datasource.QueryExecutor = (*queryExecutor)(nil)

// scanRows reads all rows into maps keyed by column name. []byte values
// are converted to strings so results serialize cleanly.
func scanRows(rows *sql.Rows) ([]map[string]any, []string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	return results, columns, rows.Err()
}
