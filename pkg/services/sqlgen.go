package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/apperrors"
	"github.com/datachat-inc/datachat-engine/pkg/cache"
	"github.com/datachat-inc/datachat-engine/pkg/llm"
	"github.com/datachat-inc/datachat-engine/pkg/models"
	sqlguard "github.com/datachat-inc/datachat-engine/pkg/sql"
)

// SQLGenerator turns a question into a validated SELECT statement.
type SQLGenerator interface {
	// Generate resolves the relevant schema, builds the prompt, calls the
	// completion service, and validates the output.
	//
	// Rejected or unanswerable output wraps apperrors.ErrGenerationRejected;
	// schema failures wrap apperrors.ErrSchemaUnavailable.
	Generate(ctx context.Context, req *GenerateRequest) (*Generated, error)
}

// GenerateRequest carries one generation attempt. ErrorContext holds a
// database error from a failed prior execution; when it or Conversation is
// set the SQL cache is bypassed so the model sees the extra context.
type GenerateRequest struct {
	Question     string
	Database     string
	Conversation string
	ErrorContext string
}

// Generated is a validated SQL statement plus the context used to build it.
type Generated struct {
	SQL      string
	Domain   models.Domain
	Tables   []string
	CacheHit bool
}

type sqlGenerator struct {
	schema     SchemaService
	classifier DomainClassifier
	prompts    PromptBuilder
	client     llm.CompletionClient
	cache      cache.Cache
	cacheTTL   time.Duration
	maxTokens  int
	logger     *zap.Logger
}

// NewSQLGenerator creates the generation pipeline.
func NewSQLGenerator(
	schema SchemaService,
	classifier DomainClassifier,
	prompts PromptBuilder,
	client llm.CompletionClient,
	c cache.Cache,
	cacheTTL time.Duration,
	maxTokens int,
	logger *zap.Logger,
) SQLGenerator {
	return &sqlGenerator{
		schema:     schema,
		classifier: classifier,
		prompts:    prompts,
		client:     client,
		cache:      c,
		cacheTTL:   cacheTTL,
		maxTokens:  maxTokens,
		logger:     logger.Named("sqlgen"),
	}
}

// sqlCacheKey keys cached SQL on the question, the exact table set it was
// generated against, and the database. A schema change that alters the
// resolved tables naturally misses.
func sqlCacheKey(question string, tables []string, database string) string {
	sorted := make([]string, len(tables))
	copy(sorted, tables)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(question))))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sorted, ",")))
	h.Write([]byte{0})
	h.Write([]byte(database))
	return "llm_sql_" + hex.EncodeToString(h.Sum(nil))[:16] + "_" + database
}

func (g *sqlGenerator) Generate(ctx context.Context, req *GenerateRequest) (*Generated, error) {
	snapshot, err := g.schema.GetRelevantSchema(ctx, req.Question, req.Database)
	if err != nil {
		return nil, err
	}

	domain := g.classifier.Classify(req.Question)
	tables := snapshot.TableNames()
	sort.Strings(tables)

	cacheable := req.ErrorContext == "" && req.Conversation == ""
	key := sqlCacheKey(req.Question, tables, req.Database)
	if cacheable {
		if cached, ok := g.cache.Get(ctx, key); ok {
			g.logger.Debug("sql cache hit", zap.String("key", key))
			return &Generated{SQL: cached, Domain: domain, Tables: tables, CacheHit: true}, nil
		}
	}

	prompt := g.prompts.BuildSQLPrompt(&SQLPromptRequest{
		Snapshot:     snapshot,
		Question:     req.Question,
		Domain:       domain,
		Conversation: req.Conversation,
		ErrorContext: req.ErrorContext,
	})

	result, err := g.client.Complete(ctx, prompt, 0, g.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("sql completion: %w", err)
	}

	validated, err := sqlguard.CheckGenerated(sqlguard.StripCodeFences(result.Text))
	if err != nil {
		g.logger.Warn("generated sql rejected",
			zap.String("question", req.Question),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGenerationRejected, err)
	}

	// Context-tailored SQL never enters the cache: the key carries neither
	// the conversation nor the error context.
	if cacheable {
		g.cache.Set(ctx, key, validated, g.cacheTTL)
	}
	g.logger.Info("sql generated",
		zap.String("database", req.Database),
		zap.String("domain", string(domain)),
		zap.Int("tables", len(tables)))
	return &Generated{SQL: validated, Domain: domain, Tables: tables}, nil
}

var _ SQLGenerator = (*sqlGenerator)(nil)
