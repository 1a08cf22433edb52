package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	"github.com/datachat-inc/datachat-engine/pkg/config"
	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// introspector reads schema metadata from information_schema.
type introspector struct {
	db       *sql.DB
	database string
}

// NewIntrospector creates a MySQL schema introspector.
func NewIntrospector(ctx context.Context, cfg *config.DatasourceConfig, database string) (datasource.Introspector, error) {
	if database == "" {
		database = cfg.Database
	}
	db, err := open(ctx, cfg, database)
	if err != nil {
		return nil, err
	}
	return &introspector{db: db, database: database}, nil
}

func (i *introspector) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := i.db.QueryContext(ctx, query, i.database)
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
		SELECT column_name, data_type, is_nullable, column_key
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := i.db.QueryContext(ctx, query, i.database, table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	for rows.Next() {
		var name, dataType, nullable, columnKey string
		if err := rows.Scan(&name, &dataType, &nullable, &columnKey); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, models.ColumnInfo{
			Name:         name,
			DataType:     dataType,
			IsNullable:   nullable == "YES",
			IsPrimaryKey: columnKey == "PRI",
		})
	}
	return columns, rows.Err()
}

func (i *introspector) ListForeignKeys(ctx context.Context, table string) ([]models.ForeignKey, error) {
	query := `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ?
		  AND referenced_table_name IS NOT NULL
		ORDER BY ordinal_position`

	rows, err := i.db.QueryContext(ctx, query, i.database, table)
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

// SampleRows fetches the first and last rows by the table's first column,
// so samples reflect both ends of the value range instead of whatever
// happens to be on the first page.
func (i *introspector) SampleRows(ctx context.Context, table string, maxRows int) ([]map[string]any, error) {
	if maxRows <= 0 {
		return nil, nil
	}

	qt := quoteIdentifier(table)
	var query string
	if maxRows == 1 {
		query = fmt.Sprintf("SELECT * FROM %s ORDER BY 1 LIMIT 1", qt)
	} else {
		query = fmt.Sprintf(
			"(SELECT * FROM %s ORDER BY 1 LIMIT 1) UNION ALL (SELECT * FROM %s ORDER BY 1 DESC LIMIT %d)",
			qt, qt, maxRows-1)
	}

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample rows from %s: %w", table, err)
	}
	defer rows.Close()

	samples, _, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan samples from %s: %w", table, err)
	}
	return samples, nil
}

func (i *introspector) Close() error {
	return i.db.Close()
}

var _ datasource.Introspector = (*introspector)(nil)
