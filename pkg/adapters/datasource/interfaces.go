// Package datasource defines the interfaces for talking to the target
// database: schema introspection and bounded SELECT execution. Driver
// implementations live in subpackages and register themselves at init time.
package datasource

import (
	"context"

	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// MaxQueryLimit is the hard cap on rows returned by Query.
// This protects against unbounded queries that could crash the server.
const MaxQueryLimit = 1000

// Introspector extracts schema information from a live database.
// Each implementation owns its connection and must be closed when done.
type Introspector interface {
	// ListTables returns all user table names, sorted.
	ListTables(ctx context.Context) ([]string, error)

	// ListColumns returns columns for a specific table in ordinal order.
	ListColumns(ctx context.Context, table string) ([]models.ColumnInfo, error)

	// ListForeignKeys returns outgoing foreign keys for a table.
	ListForeignKeys(ctx context.Context, table string) ([]models.ForeignKey, error)

	// SampleRows returns up to maxRows representative rows: the first and
	// last rows by a stable ordering rather than a naive LIMIT, so samples
	// span the table's value range.
	SampleRows(ctx context.Context, table string, maxRows int) ([]map[string]any, error)

	// Close releases the database connection.
	Close() error
}

// QueryExecutor executes SQL against the target database.
// Each implementation owns its connection and must be closed when done.
type QueryExecutor interface {
	// Query runs a SELECT statement and returns bounded results. The query
	// is always wrapped with a dialect-specific limit; limit <= 0 or above
	// MaxQueryLimit uses MaxQueryLimit.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)

	// Close releases any resources held by the executor.
	Close() error
}

// QueryResult holds the results from executing a query.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// EffectiveLimit clamps a requested limit into (0, MaxQueryLimit].
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
