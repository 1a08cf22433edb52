package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	"github.com/datachat-inc/datachat-engine/pkg/apperrors"
	"github.com/datachat-inc/datachat-engine/pkg/cache"
	"github.com/datachat-inc/datachat-engine/pkg/models"
	"github.com/datachat-inc/datachat-engine/pkg/retry"
)

// SchemaService provides cached access to introspected database schemas.
//
// Lookups walk two cache tiers before touching the database: the external
// cache (Redis) and an in-process TTL map. Both tiers are written through
// on a successful introspection. The in-process tier holds one entry per
// database and is safe for concurrent use; concurrent refreshes of the same
// database may introspect twice, last write wins.
type SchemaService interface {
	// GetSchema returns the schema snapshot for a database, from cache or
	// live introspection. Introspection failure wraps
	// apperrors.ErrSchemaUnavailable.
	GetSchema(ctx context.Context, database string) (*models.SchemaSnapshot, error)

	// GetRelevantSchema returns the snapshot filtered to the tables the
	// question needs, falling back to per-domain defaults when resolution
	// comes back empty.
	GetRelevantSchema(ctx context.Context, question, database string) (*models.SchemaSnapshot, error)

	// Invalidate evicts both cache tiers for a database.
	Invalidate(ctx context.Context, database string)
}

type schemaService struct {
	factory    datasource.Factory
	cache      cache.Cache
	resolver   TableResolver
	classifier DomainClassifier
	ttl        time.Duration
	sampleRows int
	logger     *zap.Logger

	mu    sync.RWMutex
	local map[string]localEntry

	// now is swappable in tests to exercise TTL expiry without sleeping.
	now func() time.Time
}

type localEntry struct {
	snapshot *models.SchemaSnapshot
	cachedAt time.Time
}

// NewSchemaService creates the two-tier schema cache.
func NewSchemaService(
	factory datasource.Factory,
	externalCache cache.Cache,
	resolver TableResolver,
	classifier DomainClassifier,
	ttl time.Duration,
	sampleRows int,
	logger *zap.Logger,
) SchemaService {
	return &schemaService{
		factory:    factory,
		cache:      externalCache,
		resolver:   resolver,
		classifier: classifier,
		ttl:        ttl,
		sampleRows: sampleRows,
		logger:     logger.Named("schema"),
		local:      make(map[string]localEntry),
		now:        time.Now,
	}
}

func schemaCacheKey(database string) string {
	return "schema_" + database
}

func (s *schemaService) GetSchema(ctx context.Context, database string) (*models.SchemaSnapshot, error) {
	if cached, ok := s.cache.Get(ctx, schemaCacheKey(database)); ok {
		var snapshot models.SchemaSnapshot
		if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
			s.storeLocal(database, &snapshot)
			return &snapshot, nil
		}
		// Corrupt external entry: drop it and fall through.
		s.cache.Delete(ctx, schemaCacheKey(database))
	}

	s.mu.RLock()
	entry, ok := s.local[database]
	s.mu.RUnlock()
	if ok && s.now().Sub(entry.cachedAt) < s.ttl {
		return entry.snapshot, nil
	}

	snapshot, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*models.SchemaSnapshot, error) {
		return s.introspect(ctx, database)
	})
	if err != nil {
		s.logger.Error("schema introspection failed",
			zap.String("database", database),
			zap.Error(err))
		return nil, fmt.Errorf("introspect %s: %w: %w", database, apperrors.ErrSchemaUnavailable, err)
	}

	s.storeLocal(database, snapshot)
	if data, err := json.Marshal(snapshot); err == nil {
		s.cache.Set(ctx, schemaCacheKey(database), string(data), s.ttl)
	}

	s.logger.Info("schema refreshed",
		zap.String("database", database),
		zap.Int("tables", len(snapshot.Tables)))
	return snapshot, nil
}

func (s *schemaService) GetRelevantSchema(ctx context.Context, question, database string) (*models.SchemaSnapshot, error) {
	snapshot, err := s.GetSchema(ctx, database)
	if err != nil {
		return nil, err
	}

	tables := s.resolver.Resolve(question)
	if len(tables) == 0 {
		domain := s.classifier.Classify(question)
		tables = s.resolver.FallbackTables(domain, snapshot.TableNames())
		s.logger.Debug("resolver empty, using domain fallback",
			zap.String("domain", string(domain)),
			zap.Strings("tables", tables))
	}
	if len(tables) == 0 {
		return snapshot, nil
	}

	keep := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		if _, ok := snapshot.Tables[t]; ok {
			keep[t] = struct{}{}
		}
	}
	if len(keep) == 0 {
		return snapshot, nil
	}
	return snapshot.Filtered(keep), nil
}

func (s *schemaService) Invalidate(ctx context.Context, database string) {
	s.mu.Lock()
	delete(s.local, database)
	s.mu.Unlock()
	s.cache.Delete(ctx, schemaCacheKey(database))
	s.logger.Info("schema cache invalidated", zap.String("database", database))
}

func (s *schemaService) storeLocal(database string, snapshot *models.SchemaSnapshot) {
	s.mu.Lock()
	s.local[database] = localEntry{snapshot: snapshot, cachedAt: s.now()}
	s.mu.Unlock()
}

// introspect builds a full snapshot from a live connection: tables, columns,
// primary and foreign keys, flattened relationships, and sample rows.
func (s *schemaService) introspect(ctx context.Context, database string) (*models.SchemaSnapshot, error) {
	intro, err := s.factory.NewIntrospector(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("connect introspector: %w", err)
	}
	defer intro.Close()

	tables, err := intro.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	snapshot := &models.SchemaSnapshot{
		Database:  database,
		Tables:    make(map[string]*models.TableInfo, len(tables)),
		FetchedAt: s.now(),
	}

	for _, table := range tables {
		columns, err := intro.ListColumns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("columns of %s: %w", table, err)
		}

		fks, err := intro.ListForeignKeys(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("foreign keys of %s: %w", table, err)
		}

		var pk []string
		for _, col := range columns {
			if col.IsPrimaryKey {
				pk = append(pk, col.Name)
			}
		}

		info := &models.TableInfo{
			Columns:     columns,
			PrimaryKey:  pk,
			ForeignKeys: fks,
		}

		if s.sampleRows > 0 {
			// Sampling is best effort; a view or permission issue on one
			// table must not sink the whole snapshot.
			samples, err := intro.SampleRows(ctx, table, s.sampleRows)
			if err != nil {
				s.logger.Debug("sample rows failed",
					zap.String("table", table),
					zap.Error(err))
			} else {
				info.SampleRows = samples
			}
		}

		snapshot.Tables[table] = info

		for _, fk := range fks {
			snapshot.Relationships = append(snapshot.Relationships, models.Relationship{
				SourceTable:  table,
				SourceColumn: fk.Column,
				TargetTable:  fk.ReferencedTable,
				TargetColumn: fk.ReferencedColumn,
			})
		}
	}

	return snapshot, nil
}

var _ SchemaService = (*schemaService)(nil)
