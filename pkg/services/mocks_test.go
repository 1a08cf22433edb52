package services

import (
	"context"
	"time"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	"github.com/datachat-inc/datachat-engine/pkg/models"
)

// mockIntrospector is a configurable datasource.Introspector for tests.
type mockIntrospector struct {
	ListTablesFunc      func(ctx context.Context) ([]string, error)
	ListColumnsFunc     func(ctx context.Context, table string) ([]models.ColumnInfo, error)
	ListForeignKeysFunc func(ctx context.Context, table string) ([]models.ForeignKey, error)
	SampleRowsFunc      func(ctx context.Context, table string, maxRows int) ([]map[string]any, error)

	ListTablesCalls int
	CloseCalls      int
}

func (m *mockIntrospector) ListTables(ctx context.Context) ([]string, error) {
	m.ListTablesCalls++
	if m.ListTablesFunc != nil {
		return m.ListTablesFunc(ctx)
	}
	return nil, nil
}

func (m *mockIntrospector) ListColumns(ctx context.Context, table string) ([]models.ColumnInfo, error) {
	if m.ListColumnsFunc != nil {
		return m.ListColumnsFunc(ctx, table)
	}
	return []models.ColumnInfo{{Name: "id", DataType: "int", IsPrimaryKey: true}}, nil
}

func (m *mockIntrospector) ListForeignKeys(ctx context.Context, table string) ([]models.ForeignKey, error) {
	if m.ListForeignKeysFunc != nil {
		return m.ListForeignKeysFunc(ctx, table)
	}
	return nil, nil
}

func (m *mockIntrospector) SampleRows(ctx context.Context, table string, maxRows int) ([]map[string]any, error) {
	if m.SampleRowsFunc != nil {
		return m.SampleRowsFunc(ctx, table, maxRows)
	}
	return nil, nil
}

func (m *mockIntrospector) Close() error {
	m.CloseCalls++
	return nil
}

// mockExecutor is a configurable datasource.QueryExecutor for tests.
type mockExecutor struct {
	QueryFunc func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error)

	QueryCalls int
	LastSQL    string
	CloseCalls int
}

func (m *mockExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	m.QueryCalls++
	m.LastSQL = sqlQuery
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sqlQuery, limit)
	}
	return &datasource.QueryResult{}, nil
}

func (m *mockExecutor) Close() error {
	m.CloseCalls++
	return nil
}

// mockFactory hands out the configured introspector and executor.
type mockFactory struct {
	Introspector *mockIntrospector
	Executor     *mockExecutor
	IntroErr     error
	ExecErr      error

	IntrospectorCalls int
	ExecutorCalls     int
}

func (m *mockFactory) NewIntrospector(ctx context.Context, database string) (datasource.Introspector, error) {
	m.IntrospectorCalls++
	if m.IntroErr != nil {
		return nil, m.IntroErr
	}
	return m.Introspector, nil
}

func (m *mockFactory) NewQueryExecutor(ctx context.Context, database string) (datasource.QueryExecutor, error) {
	m.ExecutorCalls++
	if m.ExecErr != nil {
		return nil, m.ExecErr
	}
	return m.Executor, nil
}

// mockSchemaService returns a fixed snapshot.
type mockSchemaService struct {
	Snapshot *models.SchemaSnapshot
	Err      error

	GetSchemaCalls         int
	GetRelevantSchemaCalls int
	InvalidateCalls        int
}

func (m *mockSchemaService) GetSchema(ctx context.Context, database string) (*models.SchemaSnapshot, error) {
	m.GetSchemaCalls++
	return m.Snapshot, m.Err
}

func (m *mockSchemaService) GetRelevantSchema(ctx context.Context, question, database string) (*models.SchemaSnapshot, error) {
	m.GetRelevantSchemaCalls++
	return m.Snapshot, m.Err
}

func (m *mockSchemaService) Invalidate(ctx context.Context, database string) {
	m.InvalidateCalls++
}

// mockGenerator is a configurable SQLGenerator for chat tests.
type mockGenerator struct {
	GenerateFunc func(ctx context.Context, req *GenerateRequest) (*Generated, error)

	GenerateCalls int
	LastRequest   *GenerateRequest
}

func (m *mockGenerator) Generate(ctx context.Context, req *GenerateRequest) (*Generated, error) {
	m.GenerateCalls++
	m.LastRequest = req
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &Generated{SQL: "SELECT 1"}, nil
}

// mockRenderer is a configurable ChartRenderer.
type mockRenderer struct {
	RenderFunc func(ctx context.Context, kind models.ChartKind, result *datasource.QueryResult, title string) ([]byte, error)

	RenderCalls int
	LastKind    models.ChartKind
}

func (m *mockRenderer) Render(ctx context.Context, kind models.ChartKind, result *datasource.QueryResult, title string) ([]byte, error) {
	m.RenderCalls++
	m.LastKind = kind
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, kind, result, title)
	}
	return []byte("png"), nil
}

// mockConversationStore keeps session turns in memory.
type mockConversationStore struct {
	Turns map[string][]string

	HistoryCalls int
	AppendCalls  int
}

func newMockConversationStore() *mockConversationStore {
	return &mockConversationStore{Turns: make(map[string][]string)}
}

func (m *mockConversationStore) History(ctx context.Context, sessionID string) (string, error) {
	m.HistoryCalls++
	turns := m.Turns[sessionID]
	if len(turns) == 0 {
		return "", nil
	}
	joined := turns[0]
	for _, t := range turns[1:] {
		joined += "\n" + t
	}
	return joined, nil
}

func (m *mockConversationStore) Append(ctx context.Context, sessionID, turn string, ttl time.Duration) error {
	m.AppendCalls++
	m.Turns[sessionID] = append(m.Turns[sessionID], turn)
	return nil
}

// testSnapshot builds a small schema used across the service tests.
func testSnapshot() *models.SchemaSnapshot {
	return &models.SchemaSnapshot{
		Database: "db",
		Tables: map[string]*models.TableInfo{
			"hr_employees": {
				Columns: []models.ColumnInfo{
					{Name: "id", DataType: "int", IsPrimaryKey: true},
					{Name: "name", DataType: "varchar"},
					{Name: "department_id", DataType: "int", IsNullable: true},
				},
				PrimaryKey: []string{"id"},
				ForeignKeys: []models.ForeignKey{
					{Column: "department_id", ReferencedTable: "hr_departments", ReferencedColumn: "id"},
				},
			},
			"hr_departments": {
				Columns: []models.ColumnInfo{
					{Name: "id", DataType: "int", IsPrimaryKey: true},
					{Name: "name", DataType: "varchar"},
				},
				PrimaryKey: []string{"id"},
			},
			"inv_products": {
				Columns: []models.ColumnInfo{
					{Name: "id", DataType: "int", IsPrimaryKey: true},
					{Name: "name", DataType: "varchar"},
					{Name: "category", DataType: "varchar", IsNullable: true},
				},
				PrimaryKey: []string{"id"},
			},
		},
		Relationships: []models.Relationship{
			{SourceTable: "hr_employees", SourceColumn: "department_id", TargetTable: "hr_departments", TargetColumn: "id"},
		},
		FetchedAt: time.Now(),
	}
}

var (
	_ datasource.Introspector  = (*mockIntrospector)(nil)
	_ datasource.QueryExecutor = (*mockExecutor)(nil)
	_ datasource.Factory       = (*mockFactory)(nil)
	_ SchemaService            = (*mockSchemaService)(nil)
	_ SQLGenerator             = (*mockGenerator)(nil)
	_ ChartRenderer            = (*mockRenderer)(nil)
	_ ConversationStore        = (*mockConversationStore)(nil)
)
