package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	"github.com/datachat-inc/datachat-engine/pkg/config"
	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// introspector reads schema metadata from the public schema via
// information_schema and pg_catalog.
type introspector struct {
	pool *pgxpool.Pool
}

// NewIntrospector creates a PostgreSQL schema introspector.
func NewIntrospector(ctx context.Context, cfg *config.DatasourceConfig, database string) (datasource.Introspector, error) {
	pool, err := open(ctx, cfg, database)
	if err != nil {
		return nil, err
	}
	return &introspector{pool: pool}, nil
}

func (i *introspector) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := i.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (i *introspector) ListColumns(ctx context.Context, table string) ([]models.ColumnInfo, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND kcu.column_name = c.column_name
			) AS is_primary
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`

	rows, err := i.pool.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	for rows.Next() {
		var name, dataType, nullable string
		var isPrimary bool
		if err := rows.Scan(&name, &dataType, &nullable, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, models.ColumnInfo{
			Name:         name,
			DataType:     dataType,
			IsNullable:   nullable == "YES",
			IsPrimaryKey: isPrimary,
		})
	}
	return columns, rows.Err()
}

func (i *introspector) ListForeignKeys(ctx context.Context, table string) ([]models.ForeignKey, error) {
	query := `
		SELECT
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = 'public'
			AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`

	rows, err := i.pool.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys for %s: %w", table, err)
	}
	defer rows.Close()

	var fks []models.ForeignKey
	for rows.Next() {
		var fk models.ForeignKey
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// SampleRows fetches the first and last rows by the table's first column.
func (i *introspector) SampleRows(ctx context.Context, table string, maxRows int) ([]map[string]any, error) {
	if maxRows <= 0 {
		return nil, nil
	}

	qt := pgx.Identifier{table}.Sanitize()
	var query string
	if maxRows == 1 {
		query = fmt.Sprintf("SELECT * FROM %s ORDER BY 1 LIMIT 1", qt)
	} else {
		query = fmt.Sprintf(
			"(SELECT * FROM %s ORDER BY 1 LIMIT 1) UNION ALL (SELECT * FROM %s ORDER BY 1 DESC LIMIT %d)",
			qt, qt, maxRows-1)
	}

	rows, err := i.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample rows from %s: %w", table, err)
	}
	defer rows.Close()

	samples, _, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan samples from %s: %w", table, err)
	}
	return samples, nil
}

func (i *introspector) Close() error {
	i.pool.Close()
	return nil
}

var _ datasource.Introspector = (*introspector)(nil)
