package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/datachat-inc/datachat-engine/pkg/config"
)

// IntrospectorFactory creates an Introspector for one database.
// The database argument overrides the configured default database name,
// so one deployment can serve questions against several databases.
type IntrospectorFactory func(ctx context.Context, cfg *config.DatasourceConfig, database string) (Introspector, error)

// QueryExecutorFactory creates a QueryExecutor for one database.
type QueryExecutorFactory func(ctx context.Context, cfg *config.DatasourceConfig, database string) (QueryExecutor, error)

// Registration bundles the factories a driver contributes.
type Registration struct {
	Introspector  IntrospectorFactory
	QueryExecutor QueryExecutorFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register makes a driver available by name. Drivers call this from init,
// so importing a driver package for side effects enables it.
func Register(driver string, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[driver]; dup {
		panic(fmt.Sprintf("datasource: duplicate driver registration %q", driver))
	}
	registry[driver] = reg
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Factory creates introspectors and executors for the configured driver.
type Factory interface {
	NewIntrospector(ctx context.Context, database string) (Introspector, error)
	NewQueryExecutor(ctx context.Context, database string) (QueryExecutor, error)
}

type registryFactory struct {
	cfg *config.DatasourceConfig
}

// NewFactory returns a Factory bound to the configured driver.
// Fails if the driver was never registered (missing import).
func NewFactory(cfg *config.DatasourceConfig) (Factory, error) {
	registryMu.RLock()
	_, ok := registry[cfg.Driver]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("datasource driver %q not registered (available: %v)", cfg.Driver, Drivers())
	}
	return &registryFactory{cfg: cfg}, nil
}

func (f *registryFactory) NewIntrospector(ctx context.Context, database string) (Introspector, error) {
	registryMu.RLock()
	reg := registry[f.cfg.Driver]
	registryMu.RUnlock()
	return reg.Introspector(ctx, f.cfg, database)
}

func (f *registryFactory) NewQueryExecutor(ctx context.Context, database string) (QueryExecutor, error) {
	registryMu.RLock()
	reg := registry[f.cfg.Driver]
	registryMu.RUnlock()
	return reg.QueryExecutor(ctx, f.cfg, database)
}
