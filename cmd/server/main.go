package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"playmind-backend/internal/config"
	"playmind-backend/internal/database"
	"playmind-backend/internal/handlers"
	"playmind-backend/internal/middleware"
	"playmind-backend/internal/models"
	"playmind-backend/internal/repository"
	"playmind-backend/internal/router"
	"playmind-backend/internal/services"
	"playmind-backend/internal/websocket"
	"playmind-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting PlayMind Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	childRepo := repository.NewChildRepo(pool)
	gameRepo := repository.NewGameRepo(pool)
	resultRepo := repository.NewResultRepo(pool)
	reportRepo := repository.NewReportRepo(pool)
	gameReportRepo := repository.NewGameReportRepo(pool)
	adviceRepo := repository.NewAdviceRepo(pool)
	pinRepo := repository.NewPinRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Advisors ────
	geminiAdvisor, err := services.NewGeminiAdvisor(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs, cfg.AdviceMaxRetries)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiAdvisor.Close()
	log.Println("✓ Gemini Flash client initialized")

	advisors := services.NewAdvisorRegistry()
	advisors.Register(models.GameCodeKidsTraffic, services.NewKidsTrafficAdvisor(geminiAdvisor))
	advisors.Register(models.GameCodeBBStar, services.NewBBStarAdvisor(geminiAdvisor))

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, emailService)

	aggregator := services.NewAggregator(resultRepo, gameReportRepo)
	updater := services.NewUpdater(resultRepo, gameReportRepo, adviceRepo, aggregator, advisors)
	scorer := services.NewScoreCalculator(resultRepo, gameReportRepo, gameRepo, reportRepo)
	jobQueue := services.NewJobQueue(jobRepo, redisClients.Queue)
	statusService := services.NewStatusService(reportRepo, gameRepo, gameReportRepo, resultRepo, aggregator, jobQueue)
	pipeline := services.NewPipeline(reportRepo, gameRepo, updater, scorer, redisClients.PubSub)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	childHandler := handlers.NewChildHandler(childRepo)
	gameHandler := handlers.NewGameHandler(gameRepo)
	resultHandler := handlers.NewResultHandler(resultRepo, childRepo, gameRepo)
	reportHandler := handlers.NewReportHandler(reportRepo, gameReportRepo, adviceRepo, gameRepo, childRepo, pinRepo, statusService, jobQueue, redisClients.Queue)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		pipeline,
		emailService,
		userRepo,
		childRepo,
		jobRepo,
		reportRepo,
		gameReportRepo,
		adviceRepo,
		gameRepo,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	reminderScheduler := services.NewReminderScheduler(userRepo, emailService, redisClients.Queue)
	reminderScheduler.Start()
	log.Println("✓ Play reminder scheduler started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		childHandler,
		gameHandler,
		resultHandler,
		reportHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		reminderScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ PlayMind Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
