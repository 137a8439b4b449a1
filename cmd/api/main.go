package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/api/handlers"
	"github.com/course-compass/backend/internal/cache/redis"
	"github.com/course-compass/backend/internal/llm"
	"github.com/course-compass/backend/internal/metrics"
	"github.com/course-compass/backend/internal/serving"
	"github.com/course-compass/backend/internal/storage/sqlite"
	"github.com/course-compass/backend/internal/vector/milvus"
	"github.com/course-compass/backend/pkg/config"
	appLogger "github.com/course-compass/backend/pkg/logger"
	"github.com/course-compass/backend/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Course Compass API server")
	metrics.Init()

	warehouse, err := sqlite.NewClient(cfg.Warehouse.Path)
	if err != nil {
		appLogger.Fatal("Failed to create warehouse client", zap.Error(err))
	}
	defer warehouse.Close()

	if err := warehouse.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	sessions, err := redis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.SessionTTL)*time.Second,
	)
	if err != nil {
		appLogger.Fatal("Failed to create redis client", zap.Error(err))
	}
	defer sessions.Close()

	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	retriever, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		llmClient,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
		cfg.Milvus.TopK,
		cfg.LLM.RetrievalTask,
	)
	if err != nil {
		appLogger.Fatal("Failed to create milvus client", zap.Error(err))
	}
	defer retriever.Close()

	if err := retriever.CreateCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to create collection", zap.Error(err))
	}

	policy := retry.Policy{
		MaxRetries:      cfg.Retry.MaxRetries,
		BaseDelay:       cfg.Retry.BaseDelay(),
		MaxDelay:        cfg.Retry.MaxDelay(),
		ExponentialBase: cfg.Retry.ExponentialBase,
		Jitter:          cfg.Retry.Jitter,
		Logger:          appLogger.GetLogger(),
	}

	engine := serving.NewEngine(warehouse, sessions, retriever, llmClient, policy)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	predictHandler := handlers.NewPredictHandler(engine)
	feedbackHandler := handlers.NewFeedbackHandler(engine)

	api := app.Group("/api/v1")
	api.Post("/llm/predict", predictHandler.HandlePredict)
	api.Post("/feedback", feedbackHandler.HandleFeedback)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
