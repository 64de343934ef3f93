package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/adapters/llm"
	"github.com/leadgenlite/voicebridge/adapters/mongo"
	"github.com/leadgenlite/voicebridge/adapters/openai"
	"github.com/leadgenlite/voicebridge/adapters/sendgrid"
	"github.com/leadgenlite/voicebridge/adapters/tavily"
	"github.com/leadgenlite/voicebridge/adapters/twilio"
	"github.com/leadgenlite/voicebridge/internal/api"
	"github.com/leadgenlite/voicebridge/internal/bridge"
)

func main() {
	// Load .env when present; real deployments use the environment directly.
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Durable store
	mongoClient, err := mongo.NewClient(mongo.NewConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Close(ctx); err != nil {
			logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}()
	store := mongo.NewCallRecordRepository(mongoClient.Database)

	// External collaborators
	searcher, err := tavily.NewSearcher(tavily.NewConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize web search", zap.Error(err))
	}
	mailer, err := sendgrid.NewSender(sendgrid.NewConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize email sender", zap.Error(err))
	}
	smsSender, err := twilio.NewSMSSender(twilio.NewConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize SMS sender", zap.Error(err))
	}
	enhancer, err := llm.NewGeminiEnhancer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize instruction enhancer", zap.Error(err))
	}

	// AI realtime client
	realtimeClient, err := openai.NewClient(openai.NewConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize realtime client", zap.Error(err))
	}

	// Call bridge
	resolver := bridge.NewContextResolver(store, logger)
	dispatcher := bridge.NewToolDispatcher(searcher, mailer, logger)
	callBridge := bridge.NewBridge(
		bridge.NewRealtimeDialer(realtimeClient),
		resolver,
		dispatcher,
		store,
		logger,
	)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	handlers := api.NewHandlers(callBridge, mailer, smsSender, enhancer, logger)
	api.InitRoutes(e, handlers)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Voice bridge started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
