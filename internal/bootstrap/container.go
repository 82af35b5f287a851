package bootstrap

import (
	"context"
	"log"
	"time"

	"tokinarc-sales-be/internal/config"
	"tokinarc-sales-be/internal/constant"
	"tokinarc-sales-be/internal/controller"
	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/internal/repository/contract"
	"tokinarc-sales-be/internal/repository/implementation"
	"tokinarc-sales-be/internal/repository/memory"
	"tokinarc-sales-be/internal/service"
	"tokinarc-sales-be/pkg/ai/router"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/events"
	"tokinarc-sales-be/pkg/knowledge"
	"tokinarc-sales-be/pkg/llm"
	"tokinarc-sales-be/pkg/llm/factory"
	pktNats "tokinarc-sales-be/pkg/nats"
	"tokinarc-sales-be/pkg/rag/executor"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/response"
	"tokinarc-sales-be/pkg/rag/search"
	"tokinarc-sales-be/pkg/rag/state"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	KnowledgeController controller.IKnowledgeController

	// Background Services (Exposed for main.go to run)
	LearningConsumer service.ILearningConsumer

	Logger  logger.ILogger
	closers []func()
}

// NewContainer builds the LLM backend from config. It exits the process
// when the backend cannot be created.
func NewContainer(cfg *config.Config) *Container {
	provider, err := factory.NewLLMProvider(context.Background(), factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.OllamaBaseURL,
		APIKey:   cfg.Ai.GeminiAPIKey,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	return NewContainerWithProvider(cfg, provider, sysLogger)
}

// NewContainerWithProvider wires everything around an existing backend.
// Tests pass a stub provider and a nop logger.
func NewContainerWithProvider(cfg *config.Config, provider llm.LLMProvider, sysLogger logger.ILogger) *Container {
	c := &Container{Logger: sysLogger}

	// 1. LLM with bounded retries
	llmProvider := llm.NewRetryingProvider(provider, llm.RetryConfig{
		MaxAttempts:     cfg.Ai.MaxAttempts,
		InitialInterval: cfg.Ai.RetryInitial,
		MaxInterval:     cfg.Ai.RetryMax,
		Multiplier:      cfg.Ai.RetryMultiplier,
	}, sysLogger)

	// 2. Catalog and knowledge
	catalogLoader := catalog.NewLoader(cfg.Sales.CatalogPath)
	knowledgeStore := knowledge.NewStore(knowledge.Config{
		Dir:      cfg.Knowledge.Dir,
		Enabled:  cfg.Knowledge.Enabled,
		MinScore: cfg.Knowledge.MinScore,
		TopK:     cfg.Knowledge.TopK,
	}, knowledge.DefaultScorer(), sysLogger)
	if err := knowledgeStore.EnsureFiles(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to seed knowledge files", map[string]interface{}{"error": err.Error()})
	}

	var gateAudit logger.ILogger = sysLogger
	if cfg.App.GateLogFilePath != "" {
		gateAudit = logger.NewIsolatedLogger(cfg.App.GateLogFilePath)
	}
	gate := knowledge.NewGate(knowledgeStore, cfg.Knowledge.MaxNewLines, sysLogger, gateAudit)

	// 3. Turn pipeline
	turnExecutor := executor.NewTurnExecutor(
		state.NewResolver(cfg.Sales.ShortMemoryTTL, sysLogger),
		router.NewRouter(intent.NewClassifier(llmProvider, sysLogger), sysLogger),
		search.NewEngine(cfg.Sales.MaxImages, sysLogger),
		catalogLoader,
		knowledgeStore,
		response.NewGenerator(llmProvider, cfg.Sales.MaxImages, sysLogger),
		sysLogger,
	)

	// 4. Infrastructure
	sessionRepo := c.sessionRepository(cfg, sysLogger)
	eventPublisher := c.eventPublisher(cfg, sysLogger)

	var publisherService service.IPublisherService
	if cfg.Knowledge.Enabled {
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
		c.closers = append(c.closers, func() { _ = pubSub.Close() })

		publisherService = service.NewPublisherService(constant.LearningTopic, pubSub)
		c.LearningConsumer = service.NewLearningConsumer(
			pubSub,
			constant.LearningTopic,
			catalogLoader,
			knowledge.NewExtractor(llmProvider, cfg.Knowledge.MaxNewLines, sysLogger),
			gate,
			eventPublisher,
			sysLogger,
		)
	}

	// 5. Services and controllers
	chatService := service.NewChatService(sessionRepo, turnExecutor, publisherService, eventPublisher, sysLogger)
	knowledgeService := service.NewKnowledgeService(knowledgeStore, gate)

	c.ChatController = controller.NewChatController(chatService)
	c.KnowledgeController = controller.NewKnowledgeController(knowledgeService)
	return c
}

func (c *Container) sessionRepository(cfg *config.Config, sysLogger logger.ILogger) contract.SessionRepository {
	if cfg.App.SessionBackend != constant.SessionBackendRedis {
		return memory.NewSessionRepository(cfg.App.MaxSessions)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Redis unreachable, falling back to memory sessions", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return memory.NewSessionRepository(cfg.App.MaxSessions)
	}

	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return implementation.NewRedisSessionRepository(rdb, cfg.App.MaxSessions)
}

func (c *Container) eventPublisher(cfg *config.Config, sysLogger logger.ILogger) events.Publisher {
	if !cfg.App.NatsEnabled {
		return pktNats.NopPublisher{}
	}

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		return pktNats.NopPublisher{}
	}
	c.closers = append(c.closers, natsPub.Close)
	return natsPub
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
