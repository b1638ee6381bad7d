package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"telemed-server/internal/config"
	"telemed-server/internal/consultation"
	"telemed-server/internal/middleware"
	"telemed-server/internal/models"
	"telemed-server/internal/routes"
	"telemed-server/internal/store"
	"telemed-server/pkg/logging"
)

func main() {
	// Load environment variables; a missing .env is fine in containers
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	repo, err := consultation.NewMemoryRepository(ctx, consultationStore(cfg, db))
	if err != nil {
		log.Fatalf("Error loading consultations: %v", err)
	}
	// pick up records other instances wrote to the shared table
	go repo.SyncEvery(ctx, cfg.Store.SyncInterval, func(err error) {
		logger.Warn("consultation sync failed", "error", err)
	})

	opts := []consultation.Option{
		consultation.WithLogger(logger.With("component", "consultation")),
		consultation.WithMetrics(consultation.NewMetrics(prometheus.DefaultRegisterer)),
		consultation.WithLocation(cfg.Schedule.Location()),
		consultation.WithJoinWindow(consultation.JoinWindow{
			Before: cfg.Schedule.JoinWindowBefore,
			After:  cfg.Schedule.JoinWindowAfter,
		}),
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("Error connecting to redis: %v", err)
		}
		cancel()
		opts = append(opts, consultation.WithLocker(consultation.NewRedisLocker(rdb, cfg.Redis.SlotLockTTL)))
		logger.Info("using redis slot locks", "addr", cfg.Redis.Addr)
	}

	catalog := consultation.NewSeededCatalog()
	engine := consultation.NewEngine(repo, catalog, store.NewDoctorTemplates(db), opts...)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger.With("component", "http")))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		DB:       db,
		Config:   cfg,
		Engine:   engine,
		Repo:     repo,
		Catalog:  catalog,
		Logger:   logger,
		Gatherer: prometheus.DefaultGatherer,
	})

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("server starting", "port", cfg.Port, "store", cfg.Store.Driver)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func consultationStore(cfg *config.Config, db *gorm.DB) consultation.Store {
	if cfg.Store.Driver == "file" {
		return store.NewFileStore(cfg.Store.File)
	}
	return store.NewGormStore(db)
}
