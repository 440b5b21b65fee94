// File: bookflow/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookflow/config"
	"bookflow/cron"
	"bookflow/database"
	conversationRepo "bookflow/database/repository/conversation"
	schedulingRepo "bookflow/database/repository/scheduling"
	"bookflow/handlers"
	"bookflow/middleware"
	"bookflow/routes"
	"bookflow/services/funnel"
	"bookflow/services/guard"
	ai "bookflow/services/intelligence"
	"bookflow/services/notification"
	"bookflow/services/resolver"
	"bookflow/services/scheduling"
	"bookflow/services/session"
	"bookflow/services/tools"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	cfg := config.AppConfig
	loc := config.Location()
	now := func() time.Time { return time.Now().In(loc) }

	// storage.
	var (
		provider scheduling.Provider
		sessions ai.SessionRepository
	)
	if cfg.SchedulingBackend == "memory" {
		seed, err := config.LoadSeed()
		if err != nil {
			logger.Fatal("main: failed to load seed", zap.Error(err))
		}
		provider = scheduling.NewMemoryProvider(seed)
		sessions = conversationRepo.NewMemoryConversationRepo()
		logger.Warn("main: using in-memory scheduling backend and conversation store")
	} else {
		if err := database.InitDB(ctx); err != nil {
			logger.Fatal("main: mongo unavailable", zap.Error(err))
		}
		logger.Info("Connected to MongoDB successfully!")

		schedRepo := schedulingRepo.NewMongoSchedulingRepo(cfg.DatabaseName)
		convRepo := conversationRepo.NewMongoConversationRepo(cfg.DatabaseName)
		if err := schedRepo.EnsureIndexes(ctx); err != nil {
			logger.Warn("main: failed to ensure scheduling indexes", zap.Error(err))
		}
		if err := convRepo.EnsureIndexes(ctx); err != nil {
			logger.Warn("main: failed to ensure conversation indexes", zap.Error(err))
		}
		provider = schedRepo
		sessions = convRepo
	}

	var (
		backend      session.Backend
		redisClients []*redis.Client
	)
	if cfg.ContextBackend == "memory" {
		backend = session.NewMemoryBackend()
	} else {
		client := utils.GetContextClient()
		redisClients = append(redisClients, client)
		backend = session.NewRedisBackend(client, cfg.ContextTTL)
	}
	utils.StartHealthMonitor(redisClients, database.MongoClient)

	// funnel.
	def, ok, err := config.LoadFunnel()
	if err != nil {
		logger.Fatal("main: invalid funnel", zap.Error(err))
	}
	if !ok {
		def = funnel.DefaultDefinition()
	}
	engine, err := funnel.NewEngine(def, logger)
	if err != nil {
		logger.Fatal("main: invalid funnel", zap.Error(err))
	}

	// tools.
	table, err := tools.NewDefaultTable(tools.Deps{
		Provider: provider,
		Resolver: resolver.New(logger),
		Rules: guard.Rules{
			ConfinedCategory:   cfg.GuardConfinedCategory,
			ConfinedLocationID: cfg.GuardConfinedLocationID,
			DefaultLocationID:  cfg.GuardDefaultLocationID,
		},
		Logger:          logger,
		ProviderTimeout: cfg.ProviderTimeout,
		WindowDays:      cfg.AvailabilityWindowDays,
		Location:        loc,
		Now:             now,
	})
	if err != nil {
		logger.Fatal("main: failed to build tool table", zap.Error(err))
	}

	// LLM.
	llm, closeLLM := newLLM(ctx, logger)
	defer closeLLM()

	// hand-off.
	queue := asynq.NewClient(cron.HandoffRedisOpt())
	defer queue.Close()
	notifier, err := notification.NewQueueNotifier(queue, logger)
	if err != nil {
		logger.Fatal("main: failed to build hand-off notifier", zap.Error(err))
	}
	startHandoffWorker(ctx, logger)

	orchestrator := ai.NewOrchestrator(ai.Deps{
		LLM:      llm,
		Tools:    table,
		Store:    session.NewStore(backend, logger),
		Funnel:   engine,
		Sessions: sessions,
		Notifier: notifier,
		Logger:   logger,
		Now:      now,
	}, ai.Config{
		HistoryLimit:   cfg.HistoryLimit,
		LLMTimeout:     cfg.LLMTimeout,
		HandoffMessage: cfg.HandoffMessage,
		ApologyMessage: cfg.ApologyMessage,
		Location:       loc,
	})

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))

	handlerBundle := handlers.NewHandlerBundle(handlers.NewChatHandler(orchestrator))
	routes.RegisterRoutes(router, handlerBundle, cfg.MaxRequestsPerMin)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	if err := database.CloseDB(shutdownCtx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// newLLM builds the configured LLM provider and its cleanup.
func newLLM(ctx context.Context, logger *zap.Logger) (ai.LLMProvider, func()) {
	cfg := config.AppConfig
	switch cfg.LLMProvider {
	case "openai":
		return ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), func() {}
	case "gemini", "":
		client, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Fatal("main: failed to initialize Gemini", zap.Error(err))
		}
		return client, func() { _ = client.Close() }
	default:
		logger.Fatal("main: unknown LLM_PROVIDER", zap.String("provider", cfg.LLMProvider))
		return nil, nil
	}
}

// startHandoffWorker runs the operator push worker when Firebase is configured.
// Without it hand-off tasks stay queued until a worker with credentials picks them up.
func startHandoffWorker(ctx context.Context, logger *zap.Logger) {
	if err := utils.FirebaseInit(ctx); err != nil {
		logger.Warn("main: hand-off push disabled", zap.Error(err))
		return
	}
	sender, err := notification.NewFCMHandoffSender(utils.FCMClient, config.AppConfig.HandoffTopic)
	if err != nil {
		logger.Warn("main: hand-off push disabled", zap.Error(err))
		return
	}
	cron.InitHandoffWorker(sender)
}
