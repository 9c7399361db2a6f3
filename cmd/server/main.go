package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"later/internal/config"
	"later/internal/database"
	"later/internal/document"
	"later/internal/handlers"
	"later/internal/jobs"
	"later/internal/logging"
	"later/internal/middleware"
	"later/internal/preflight"
	"later/internal/services"
	"later/pkg/auth"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️  No .env file found, using environment variables")
	}

	logging.Init()
	cfg := config.Load()

	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI is required")
	}

	// MongoDB
	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			log.Printf("⚠️  MongoDB close error: %v", err)
		}
	}()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Initialize(initCtx); err != nil {
		cancelInit()
		log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
	}
	cancelInit()

	// Pre-flight checks
	checker := preflight.NewChecker(db)
	results := checker.RunAll()
	if preflight.HasFailures(results) {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	// Redis (optional, backs the insights cache)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, insights caching disabled: %v", err)
			redisService = nil
		} else {
			defer redisService.Close()
		}
	} else {
		log.Println("ℹ️  REDIS_URL not set, insights caching disabled")
	}

	// JWT auth (nil in development without a secret; middleware handles the
	// bypass rules)
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
	}

	// Services
	contentStore := services.NewMongoContentStore(db.Collection(database.CollectionContentItems), cfg.FullTextTimeoutMS)
	patternStore := services.NewMongoPatternStore(db.Collection(database.CollectionContextPatterns))
	patternService := services.NewPatternService(patternStore)
	analyticsService := services.NewAnalyticsService(db.Collection(database.CollectionAnalyticsEvents))
	userService := services.NewUserService(db.Collection(database.CollectionUsers))

	searchService := services.NewSearchService(contentStore, contentStore)
	suggestionService := services.NewSuggestionService(contentStore, patternService, redisService)

	captureLimiter := services.NewCaptureRateLimiter(cfg.CaptureGlobalRate, cfg.CapturePerDomainRate)
	captureService := services.NewCaptureService(contentStore, captureLimiter, analyticsService)

	renderer := document.NewRenderer()

	// Background jobs
	maintenance, err := jobs.NewPatternMaintenance(patternService)
	if err != nil {
		log.Fatalf("❌ Failed to create pattern maintenance job: %v", err)
	}
	if err := maintenance.Start(); err != nil {
		log.Fatalf("❌ Failed to start pattern maintenance job: %v", err)
	}
	defer func() {
		if err := maintenance.Stop(); err != nil {
			log.Printf("⚠️  Job scheduler shutdown error: %v", err)
		}
	}()

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Later v1.0",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    5 * 1024 * 1024, // 5MB, notes and capture payloads only
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("later")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	app.Use("/api", middleware.GlobalAPIRateLimiter(300))

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisService)
	authHandler := handlers.NewAuthHandler(userService, jwtAuth)
	searchHandler := handlers.NewSearchHandler(searchService, analyticsService)
	suggestionHandler := handlers.NewSuggestionHandler(suggestionService, userService, analyticsService)
	contentHandler := handlers.NewContentHandler(contentStore, captureService, renderer, analyticsService)
	preferencesHandler := handlers.NewPreferencesHandler(userService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Routes
	app.Get("/health", healthHandler.Health)

	authGroup := app.Group("/api/auth", middleware.AuthRateLimiter())
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)

	api := app.Group("/api", middleware.LocalAuthMiddleware(jwtAuth))
	api.Get("/auth/me", authHandler.Me)

	api.Post("/search", searchHandler.Search)
	api.Post("/context-suggestions", suggestionHandler.Suggest)

	api.Post("/content", contentHandler.Create)
	api.Get("/content", contentHandler.List)
	api.Get("/content/:id", contentHandler.Get)
	api.Put("/content/:id", contentHandler.Update)
	api.Delete("/content/:id", contentHandler.Delete)
	api.Post("/content/:id/view", contentHandler.MarkViewed)
	api.Get("/content/:id/preview", contentHandler.Preview)

	api.Get("/user/preferences", preferencesHandler.Get)
	api.Put("/user/preferences", preferencesHandler.Update)

	api.Get("/analytics/activity", analyticsHandler.Activity)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan

		log.Printf("🛑 Received %v, shutting down...", sig)
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Later server listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}

	log.Println("👋 Server stopped")
}
