package main

import (
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/adapters/datasource"
	_ "github.com/datachat-inc/datachat-engine/pkg/adapters/datasource/mysql"
	_ "github.com/datachat-inc/datachat-engine/pkg/adapters/datasource/postgres"
	"github.com/datachat-inc/datachat-engine/pkg/cache"
	"github.com/datachat-inc/datachat-engine/pkg/config"
	"github.com/datachat-inc/datachat-engine/pkg/handlers"
	"github.com/datachat-inc/datachat-engine/pkg/llm"
	"github.com/datachat-inc/datachat-engine/pkg/middleware"
	"github.com/datachat-inc/datachat-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("datasource_driver", cfg.Datasource.Driver),
		zap.String("datasource", cfg.Datasource.Host),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	// External cache tier. No Redis host configured means every lookup
	// misses, which is a valid (if slower) deployment.
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, continuing without external cache", zap.Error(err))
	}
	externalCache := cache.NewRedisCache(redisClient, logger)

	glossary, err := services.NewGlossary(cfg.Analyzer.BusinessTermsPath, logger)
	if err != nil {
		// Degraded start: resolution falls back to domain defaults.
		logger.Warn("continuing with empty business glossary", zap.Error(err))
	}

	classifier := services.NewDomainClassifier()
	resolver := services.NewTableResolver(glossary, cfg.Analyzer.FuzzyThreshold, logger)

	factory, err := datasource.NewFactory(&cfg.Datasource)
	if err != nil {
		logger.Fatal("datasource factory", zap.Error(err))
	}

	schemaService := services.NewSchemaService(
		factory,
		externalCache,
		resolver,
		classifier,
		time.Duration(cfg.Analyzer.SchemaTTLMinutes)*time.Minute,
		cfg.Analyzer.SampleRows,
		logger,
	)

	client, err := llm.NewClientFromConfig(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("llm client", zap.Error(err))
	}

	prompts := services.NewPromptBuilder(logger)
	generator := services.NewSQLGenerator(
		schemaService,
		classifier,
		prompts,
		client,
		externalCache,
		time.Duration(cfg.Analyzer.SQLCacheTTLSeconds)*time.Second,
		cfg.LLM.MaxTokens,
		logger,
	)

	responder := services.NewResponseRouter(client, prompts, nil, glossary, logger)

	chatService := services.NewChatService(
		schemaService,
		generator,
		responder,
		prompts,
		client,
		factory,
		externalCache,
		nil,
		time.Duration(cfg.Analyzer.ResultCacheTTLSeconds)*time.Second,
		time.Duration(cfg.Datasource.QueryTimeoutSeconds)*time.Second,
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(chatService, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(schemaService, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting datachat-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
