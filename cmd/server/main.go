package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"geoquery/internal/config"
	"geoquery/internal/handler"
	"geoquery/internal/model"
	"geoquery/internal/repository"
	"geoquery/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	log.Printf("GeoQuery Answering Service")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Pick the executor for the configured query target
	executor, cleanup, err := buildExecutor(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize search backend: %v", err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	log.Printf("✅ Search backend ready (target=%s)", cfg.Search.Target)

	// Initialize completion client
	var completionClient service.CompletionClient
	if cfg.OpenAI.Enabled {
		completionClient = service.NewOpenAIClient(&cfg.OpenAI)
		log.Printf("✅ Completion client initialized")
		log.Printf("   - API Base: %s", cfg.OpenAI.APIBase)
		log.Printf("   - Chat model: %s", cfg.OpenAI.ChatModel)
	} else {
		log.Println("⚠️  Completion API is disabled - questions will run as unfiltered queries")
		log.Println("   Set OPENAI_API_KEY environment variable to enable formalization")
	}

	// Initialize the pipeline
	pipeline := service.NewPipeline(
		service.NewFormalizer(completionClient),
		service.NewQueryBuilder(cfg.Search),
		executor,
		service.NewResponseReducer(),
	)

	log.Println("✅ Pipeline initialized")

	// Initialize handlers
	queryHandler := handler.NewQueryHandler(pipeline)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "geoquery",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/query", queryHandler.Query)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting server on %s", addr)

	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	log.Println("✅ Server stopped")
}

// buildExecutor wires the executor matching the configured target and SQL
// backend. DSL always runs on OpenSearch; SQL runs on OpenSearch's SQL
// plugin or on the relational mirror.
func buildExecutor(cfg *config.Config) (service.Executor, func(), error) {
	if cfg.Search.Target == model.TargetSQL && cfg.Search.SQLBackend == config.SQLBackendPostgres {
		executor, err := repository.NewPostgresExecutor(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
			cfg.Search.PageSize,
		)
		if err != nil {
			return nil, nil, err
		}
		log.Println("✅ Connected to PostgreSQL mirror")
		return executor, func() { _ = executor.Close() }, nil
	}

	executor, err := repository.NewOpenSearchExecutor(cfg.OpenSearch, cfg.OpenSearchURL(), cfg.Search.PageSize)
	if err != nil {
		return nil, nil, err
	}
	return executor, nil, nil
}
