// Package cache provides the external cache collaborator used for schema
// snapshots, generated SQL, and query results. Implementations must be safe
// for concurrent use and safe to call while the backing service is down.
package cache

import (
	"context"
	"time"
)

// Cache is a string key/value store with TTL expiry.
//
// Get returns ("", false) on a miss. A degraded or unreachable backend is
// treated as always-miss: implementations log and swallow transport errors
// rather than surfacing them, since cached state is never a source of truth.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}
