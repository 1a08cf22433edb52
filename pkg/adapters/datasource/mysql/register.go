// Package mysql implements schema introspection and bounded query
// execution against MySQL databases.
package mysql

import (
	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register("mysql", datasource.Registration{
		Introspector:  NewIntrospector,
		QueryExecutor: NewQueryExecutor,
	})
}
