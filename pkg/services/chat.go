package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	"github.com/datachat-inc/datachat-engine/pkg/apperrors"
	"github.com/datachat-inc/datachat-engine/pkg/cache"
	"github.com/datachat-inc/datachat-engine/pkg/llm"
	"github.com/datachat-inc/datachat-engine/pkg/logging"
	"github.com/datachat-inc/datachat-engine/pkg/models"
	sqlguard "github.com/datachat-inc/datachat-engine/pkg/sql"
)

// ConversationStore persists per-session conversation context. Implemented
// externally (typically a KV store with TTL); the engine only reads prior
// turns and appends new ones.
type ConversationStore interface {
	// History returns the stored conversation context for a session, empty
	// when none exists.
	History(ctx context.Context, sessionID string) (string, error)

	// Append adds one turn to the session context.
	Append(ctx context.Context, sessionID, turn string, ttl time.Duration) error
}

// ChatRequest is one user turn.
type ChatRequest struct {
	Question  string `json:"question"`
	Database  string `json:"database,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatService orchestrates a full chat turn: safety guards, documentation
// shortcuts, SQL generation, bounded execution with result caching and one
// schema-mismatch retry, and response formatting.
type ChatService interface {
	Process(ctx context.Context, req *ChatRequest) (*models.Response, error)
}

type chatService struct {
	schema        SchemaService
	generator     SQLGenerator
	responder     ResponseRouter
	prompts       PromptBuilder
	client        llm.CompletionClient
	factory       datasource.Factory
	cache         cache.Cache
	conversations ConversationStore // nil disables conversation context
	resultTTL     time.Duration
	queryTimeout  time.Duration
	logger        *zap.Logger
}

// NewChatService creates the chat orchestrator. conversations may be nil;
// queryTimeout zero disables the execution deadline.
func NewChatService(
	schema SchemaService,
	generator SQLGenerator,
	responder ResponseRouter,
	prompts PromptBuilder,
	client llm.CompletionClient,
	factory datasource.Factory,
	c cache.Cache,
	conversations ConversationStore,
	resultTTL time.Duration,
	queryTimeout time.Duration,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		schema:        schema,
		generator:     generator,
		responder:     responder,
		prompts:       prompts,
		client:        client,
		factory:       factory,
		cache:         c,
		conversations: conversations,
		resultTTL:     resultTTL,
		queryTimeout:  queryTimeout,
		logger:        logger.Named("chat"),
	}
}

// sensitiveKeywords refuse the turn outright. Questions about credential
// material never reach the schema, the cache, or the completion service.
var sensitiveKeywords = []string{"password", "passwd", "secret", "credential", "token"}

const refusalText = "I can't help with questions about passwords, secrets, or other credential data."

func (s *chatService) Process(ctx context.Context, req *ChatRequest) (*models.Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return &models.Response{
			Kind: models.ResponseText,
			Text: "Please ask a question about your data.",
		}, nil
	}

	if refused := s.checkSafety(question); refused != nil {
		return refused, nil
	}

	// Documentation questions are answered straight from the snapshot.
	if snapshot, err := s.schema.GetSchema(ctx, req.Database); err == nil {
		if resp, ok := s.responder.Documentation(question, snapshot); ok {
			return resp, nil
		}
	}

	conversation := s.history(ctx, req.SessionID)

	generated, err := s.generator.Generate(ctx, &GenerateRequest{
		Question:     question,
		Database:     req.Database,
		Conversation: conversation,
	})
	if err != nil {
		return s.handleGenerationFailure(ctx, req, err)
	}

	result, execErr := s.execute(ctx, req.Database, generated.SQL)
	if execErr != nil && isSchemaMismatch(execErr) {
		// The model referenced a column that does not exist. One retry
		// with the database error in the prompt usually corrects it.
		s.logger.Info("schema mismatch, regenerating with error context",
			zap.String("database", req.Database),
			zap.Error(execErr))
		retried, err := s.generator.Generate(ctx, &GenerateRequest{
			Question:     question,
			Database:     req.Database,
			Conversation: conversation,
			ErrorContext: execErr.Error(),
		})
		if err != nil {
			return s.handleGenerationFailure(ctx, req, err)
		}
		generated = retried
		result, execErr = s.execute(ctx, req.Database, generated.SQL)
	}
	if execErr != nil {
		s.logger.Warn("query execution failed",
			zap.String("database", req.Database),
			zap.String("sql", logging.SanitizeQuery(generated.SQL)),
			zap.String("error", logging.SanitizeError(execErr)))
		return &models.Response{
			Kind: models.ResponseText,
			Text: "The query failed to run: " + logging.SanitizeError(execErr),
			SQL:  generated.SQL,
		}, nil
	}

	resp := s.responder.Format(ctx, question, result, generated.SQL)
	s.recordTurn(ctx, req, resp)
	return resp, nil
}

// checkSafety returns a refusal response for unsafe questions, nil otherwise.
func (s *chatService) checkSafety(question string) *models.Response {
	q := strings.ToLower(question)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(q, kw) {
			s.logger.Info("question refused: sensitive keyword", zap.String("keyword", kw))
			return &models.Response{Kind: models.ResponseText, Text: refusalText}
		}
	}
	if check := sqlguard.CheckQuestionForInjection(question); check != nil {
		s.logger.Info("question refused: injection pattern",
			zap.String("fingerprint", check.Fingerprint))
		return &models.Response{Kind: models.ResponseText, Text: refusalText}
	}
	return nil
}

// handleGenerationFailure degrades a failed generation into a conversational
// answer when possible.
func (s *chatService) handleGenerationFailure(ctx context.Context, req *ChatRequest, genErr error) (*models.Response, error) {
	if errors.Is(genErr, apperrors.ErrSchemaUnavailable) {
		return &models.Response{
			Kind: models.ResponseText,
			Text: "I couldn't read the database schema right now. Please try again shortly.",
		}, nil
	}
	if !errors.Is(genErr, apperrors.ErrGenerationRejected) {
		return nil, genErr
	}

	// No valid SQL. Fall back to a conversational answer over the schema
	// overview so the user still gets something useful.
	snapshot, err := s.schema.GetSchema(ctx, req.Database)
	if err != nil {
		return &models.Response{
			Kind: models.ResponseText,
			Text: "I couldn't turn that question into a query. Try rephrasing it in terms of your tables.",
		}, nil
	}

	prompt := s.prompts.BuildConversationalPrompt(snapshot, req.Question)
	completion, err := s.client.Complete(ctx, prompt, 0.3, 300)
	if err != nil || strings.TrimSpace(completion.Text) == "" {
		return &models.Response{
			Kind: models.ResponseText,
			Text: "I couldn't turn that question into a query. Try rephrasing it in terms of your tables.",
		}, nil
	}
	return &models.Response{Kind: models.ResponseText, Text: strings.TrimSpace(completion.Text)}, nil
}

func resultCacheKey(database, sqlText string) string {
	h := sha256.Sum256([]byte(sqlText))
	return "queryres_" + database + "_" + hex.EncodeToString(h[:])[:16]
}

// execute runs validated SQL through the bounded executor, with a
// write-through result cache in front.
func (s *chatService) execute(ctx context.Context, database, sqlText string) (*datasource.QueryResult, error) {
	key := resultCacheKey(database, sqlText)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var result datasource.QueryResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			s.logger.Debug("query result cache hit", zap.String("key", key))
			return &result, nil
		}
		s.cache.Delete(ctx, key)
	}

	executor, err := s.factory.NewQueryExecutor(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("connect executor: %w", err)
	}
	defer executor.Close()

	// Bound the execution so a runaway query never hangs the turn.
	queryCtx := ctx
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	result, err := executor.Query(queryCtx, sqlText, datasource.MaxQueryLimit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, string(data), s.resultTTL)
	}
	return result, nil
}

// isSchemaMismatch recognizes the one execution failure worth a regeneration
// attempt: the statement referenced a column the schema does not have.
// MySQL reports it as error 1054.
func isSchemaMismatch(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "error 1054") ||
		strings.Contains(msg, "unknown column") ||
		strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "does not exist")
}

// history fetches prior turns for a session, best effort.
func (s *chatService) history(ctx context.Context, sessionID string) string {
	if s.conversations == nil || sessionID == "" {
		return ""
	}
	h, err := s.conversations.History(ctx, sessionID)
	if err != nil {
		s.logger.Debug("conversation history fetch failed", zap.Error(err))
		return ""
	}
	return h
}

// recordTurn appends the answered turn to the session context, best effort.
func (s *chatService) recordTurn(ctx context.Context, req *ChatRequest, resp *models.Response) {
	if s.conversations == nil || req.SessionID == "" {
		return
	}
	turn := fmt.Sprintf("Q: %s\nSQL: %s", req.Question, resp.SQL)
	if err := s.conversations.Append(ctx, req.SessionID, turn, 30*time.Minute); err != nil {
		s.logger.Debug("conversation append failed", zap.Error(err))
	}
}

var _ ChatService = (*chatService)(nil)
