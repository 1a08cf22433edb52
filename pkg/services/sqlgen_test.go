package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/apperrors"
	"github.com/datachat-inc/datachat-engine/pkg/cache"
	"github.com/datachat-inc/datachat-engine/pkg/llm"
	"github.com/datachat-inc/datachat-engine/pkg/models"
)

func newTestGenerator(schema SchemaService, client llm.CompletionClient, c cache.Cache) SQLGenerator {
	return NewSQLGenerator(
		schema,
		NewDomainClassifier(),
		NewPromptBuilder(zap.NewNop()),
		client,
		c,
		time.Hour,
		500,
		zap.NewNop(),
	)
}

func TestGenerateHappyPath(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		assert.Zero(t, temperature, "sql generation must be deterministic")
		return &llm.CompletionResult{Text: "SELECT COUNT(*) FROM hr_employees;"}, nil
	}
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, cache.NewMemoryCache())

	got, err := g.Generate(context.Background(), &GenerateRequest{Question: "how many employees", Database: "db"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM hr_employees", got.SQL)
	assert.Equal(t, models.DomainHR, got.Domain)
	assert.False(t, got.CacheHit)
	assert.Equal(t, 1, client.CompleteCalls)
}

func TestGenerateCacheRoundTrip(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "SELECT COUNT(*) FROM hr_employees"}, nil
	}
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, cache.NewMemoryCache())
	ctx := context.Background()
	req := &GenerateRequest{Question: "how many employees", Database: "db"}

	first, err := g.Generate(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, client.CompleteCalls)

	// Same question, same tables: served from cache, no completion call.
	second, err := g.Generate(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.SQL, second.SQL)
	assert.Equal(t, 1, client.CompleteCalls)
}

func TestGenerateStripsCodeFences(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "```sql\nSELECT name FROM inv_products\n```"}, nil
	}
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, cache.NewMemoryCache())

	got, err := g.Generate(context.Background(), &GenerateRequest{Question: "list products", Database: "db"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM inv_products", got.SQL)
}

func TestGenerateRejectsPlaceholders(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "SELECT * FROM your_table_name"}, nil
	}
	c := cache.NewMemoryCache()
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, c)
	ctx := context.Background()
	req := &GenerateRequest{Question: "list products", Database: "db"}

	_, err := g.Generate(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGenerationRejected)

	// Rejected output is never cached: the next attempt calls the model again.
	_, err = g.Generate(ctx, req)
	require.Error(t, err)
	assert.Equal(t, 2, client.CompleteCalls)
}

func TestGenerateRejectsSentinel(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "--ERROR"}, nil
	}
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, cache.NewMemoryCache())

	_, err := g.Generate(context.Background(), &GenerateRequest{Question: "what is the meaning of life", Database: "db"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGenerationRejected)
}

func TestGenerateRejectsNonSelect(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "DELETE FROM hr_employees"}, nil
	}
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, cache.NewMemoryCache())

	_, err := g.Generate(context.Background(), &GenerateRequest{Question: "remove everyone", Database: "db"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGenerationRejected)
}

func TestGenerateErrorContextBypassesCache(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "SELECT salary FROM hr_employees"}, nil
	}
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, cache.NewMemoryCache())
	ctx := context.Background()

	_, err := g.Generate(ctx, &GenerateRequest{Question: "salaries", Database: "db"})
	require.NoError(t, err)
	require.Equal(t, 1, client.CompleteCalls)

	_, err = g.Generate(ctx, &GenerateRequest{
		Question:     "salaries",
		Database:     "db",
		ErrorContext: "Error 1054: Unknown column 'salry'",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, client.CompleteCalls, "error context must skip the cache")
	assert.Contains(t, client.LastPrompt, "Unknown column 'salry'")
}

func TestGenerateConversationNotCached(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Text: "SELECT name FROM hr_employees"}, nil
	}
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, cache.NewMemoryCache())
	ctx := context.Background()

	_, err := g.Generate(ctx, &GenerateRequest{
		Question:     "and their names",
		Database:     "db",
		Conversation: "Q: how many employees\nSQL: SELECT COUNT(*) FROM hr_employees",
	})
	require.NoError(t, err)
	require.Equal(t, 1, client.CompleteCalls)

	// Conversation-tailored SQL must not be stored under the context-free
	// key, so the same question without context calls the model again.
	got, err := g.Generate(ctx, &GenerateRequest{Question: "and their names", Database: "db"})
	require.NoError(t, err)
	assert.False(t, got.CacheHit)
	assert.Equal(t, 2, client.CompleteCalls)
}

func TestGenerateSchemaUnavailable(t *testing.T) {
	client := llm.NewMockCompletionClient()
	g := newTestGenerator(&mockSchemaService{Err: apperrors.ErrSchemaUnavailable}, client, cache.NewMemoryCache())

	_, err := g.Generate(context.Background(), &GenerateRequest{Question: "q", Database: "db"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSchemaUnavailable)
	assert.Equal(t, 0, client.CompleteCalls)
}

func TestGenerateCompletionError(t *testing.T) {
	client := llm.NewMockCompletionClient()
	client.CompleteFunc = func(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.CompletionResult, error) {
		return nil, errors.New("rate limit")
	}
	g := newTestGenerator(&mockSchemaService{Snapshot: testSnapshot()}, client, cache.NewMemoryCache())

	_, err := g.Generate(context.Background(), &GenerateRequest{Question: "q", Database: "db"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrGenerationRejected)
}
