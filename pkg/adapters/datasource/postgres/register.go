// Package postgres implements schema introspection and bounded query
// execution against PostgreSQL databases.
package postgres

import (
	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register("postgres", datasource.Registration{
		Introspector:  NewIntrospector,
		QueryExecutor: NewQueryExecutor,
	})
}
