package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/apperrors"
	"github.com/datachat-inc/datachat-engine/pkg/cache"
	"github.com/datachat-inc/datachat-engine/pkg/models"
)

func newTestSchemaService(t *testing.T, factory *mockFactory, external cache.Cache) *schemaService {
	t.Helper()
	glossary := testGlossary()
	resolver := NewTableResolver(glossary, 75, zap.NewNop())
	svc := NewSchemaService(
		factory,
		external,
		resolver,
		NewDomainClassifier(),
		time.Hour,
		0,
		zap.NewNop(),
	)
	return svc.(*schemaService)
}

func hrFactory() *mockFactory {
	return &mockFactory{
		Introspector: &mockIntrospector{
			ListTablesFunc: func(ctx context.Context) ([]string, error) {
				return []string{"hr_employees", "hr_departments"}, nil
			},
		},
	}
}

func TestGetSchemaIntrospectsOnce(t *testing.T) {
	factory := hrFactory()
	svc := newTestSchemaService(t, factory, cache.NewMemoryCache())
	ctx := context.Background()

	first, err := svc.GetSchema(ctx, "db")
	require.NoError(t, err)
	assert.Len(t, first.Tables, 2)
	assert.Equal(t, 1, factory.IntrospectorCalls)
	assert.Equal(t, 1, factory.Introspector.CloseCalls)

	// Within TTL the snapshot comes from cache, not a fresh connection.
	second, err := svc.GetSchema(ctx, "db")
	require.NoError(t, err)
	assert.Len(t, second.Tables, 2)
	assert.Equal(t, 1, factory.IntrospectorCalls)
}

func TestGetSchemaTTLExpiry(t *testing.T) {
	factory := hrFactory()
	external := cache.NewMemoryCache()
	svc := newTestSchemaService(t, factory, external)
	ctx := context.Background()

	now := time.Now()
	svc.now = func() time.Time { return now }
	external.SetClock(func() time.Time { return now })

	_, err := svc.GetSchema(ctx, "db")
	require.NoError(t, err)
	require.Equal(t, 1, factory.IntrospectorCalls)

	// Both tiers expire together after the TTL.
	now = now.Add(2 * time.Hour)
	_, err = svc.GetSchema(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, 2, factory.IntrospectorCalls)
}

func TestGetSchemaExternalCacheHit(t *testing.T) {
	factory := hrFactory()
	external := cache.NewMemoryCache()
	svc := newTestSchemaService(t, factory, external)
	ctx := context.Background()

	snapshot := testSnapshot()
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	external.Set(ctx, "schema_db", string(data), time.Hour)

	got, err := svc.GetSchema(ctx, "db")
	require.NoError(t, err)
	assert.Len(t, got.Tables, len(snapshot.Tables))
	assert.Equal(t, 0, factory.IntrospectorCalls, "external hit must skip introspection")
}

func TestGetSchemaCorruptExternalEntry(t *testing.T) {
	factory := hrFactory()
	external := cache.NewMemoryCache()
	svc := newTestSchemaService(t, factory, external)
	ctx := context.Background()

	external.Set(ctx, "schema_db", "{not json", time.Hour)

	got, err := svc.GetSchema(ctx, "db")
	require.NoError(t, err)
	assert.Len(t, got.Tables, 2)
	assert.Equal(t, 1, factory.IntrospectorCalls)
}

func TestGetSchemaIntrospectionFailure(t *testing.T) {
	factory := &mockFactory{IntroErr: errors.New("access denied for user")}
	svc := newTestSchemaService(t, factory, cache.NewMemoryCache())

	_, err := svc.GetSchema(context.Background(), "db")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSchemaUnavailable)
}

func TestInvalidateEvictsBothTiers(t *testing.T) {
	factory := hrFactory()
	external := cache.NewMemoryCache()
	svc := newTestSchemaService(t, factory, external)
	ctx := context.Background()

	_, err := svc.GetSchema(ctx, "db")
	require.NoError(t, err)
	require.Equal(t, 1, factory.IntrospectorCalls)

	svc.Invalidate(ctx, "db")
	_, ok := external.Get(ctx, "schema_db")
	assert.False(t, ok)

	_, err = svc.GetSchema(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, 2, factory.IntrospectorCalls)
}

func TestGetSchemaBuildsRelationships(t *testing.T) {
	factory := &mockFactory{
		Introspector: &mockIntrospector{
			ListTablesFunc: func(ctx context.Context) ([]string, error) {
				return []string{"hr_employees"}, nil
			},
			ListForeignKeysFunc: func(ctx context.Context, table string) ([]models.ForeignKey, error) {
				return []models.ForeignKey{
					{Column: "department_id", ReferencedTable: "hr_departments", ReferencedColumn: "id"},
				}, nil
			},
		},
	}
	svc := newTestSchemaService(t, factory, cache.NewMemoryCache())

	got, err := svc.GetSchema(context.Background(), "db")
	require.NoError(t, err)
	require.Len(t, got.Relationships, 1)
	assert.Equal(t, "hr_employees", got.Relationships[0].SourceTable)
	assert.Equal(t, "hr_departments", got.Relationships[0].TargetTable)
}

func TestGetRelevantSchemaFilters(t *testing.T) {
	factory := &mockFactory{
		Introspector: &mockIntrospector{
			ListTablesFunc: func(ctx context.Context) ([]string, error) {
				return []string{"hr_employees", "hr_departments", "inv_products"}, nil
			},
		},
	}
	svc := newTestSchemaService(t, factory, cache.NewMemoryCache())

	got, err := svc.GetRelevantSchema(context.Background(), "list all employees", "db")
	require.NoError(t, err)
	assert.Contains(t, got.Tables, "hr_employees")
	assert.NotContains(t, got.Tables, "inv_products")
}

func TestGetRelevantSchemaFallsBackToDomain(t *testing.T) {
	factory := &mockFactory{
		Introspector: &mockIntrospector{
			ListTablesFunc: func(ctx context.Context) ([]string, error) {
				return []string{"hr_employees", "hr_departments", "inv_products"}, nil
			},
		},
	}
	svc := newTestSchemaService(t, factory, cache.NewMemoryCache())

	// No glossary keyword fires, but the hiring vocabulary classifies as HR.
	got, err := svc.GetRelevantSchema(context.Background(), "who was hired last", "db")
	require.NoError(t, err)
	assert.Contains(t, got.Tables, "hr_employees")
	assert.Contains(t, got.Tables, "hr_departments")
	assert.NotContains(t, got.Tables, "inv_products")
}
