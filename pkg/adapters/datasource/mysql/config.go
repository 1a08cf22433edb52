package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/datachat-inc/datachat-engine/pkg/config"
)

// open builds a MySQL connection for the given database, verifying it with
// a ping before returning. An empty database falls back to the configured
// default.
func open(ctx context.Context, cfg *config.DatasourceConfig, database string) (*sql.DB, error) {
	if database == "" {
		database = cfg.Database
	}

	mc := gomysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = database
	mc.ParseTime = true

	connector, err := gomysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}

// quoteIdentifier backtick-quotes a MySQL identifier.
func quoteIdentifier(name string) string {
	quoted := "`"
	for _, r := range name {
		if r == '`' {
			quoted += "``"
			continue
		}
		quoted += string(r)
	}
	return quoted + "`"
}
