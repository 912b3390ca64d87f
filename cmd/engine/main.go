package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sendwave/internal/config"
	"sendwave/internal/engine"
	"sendwave/internal/events"
	"sendwave/internal/handler"
	"sendwave/internal/middleware"
	"sendwave/internal/queue"
	"sendwave/internal/repository"
)

const version = "1.0.0"

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Connected to database")

	// Open durable job queue
	jobQueue, err := queue.NewBoltQueue(cfg.Queue.Path)
	if err != nil {
		log.Fatalf("Failed to open job queue: %v", err)
	}
	defer jobQueue.Close()
	log.Printf("✅ Job queue open at %s", cfg.Queue.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Requeue jobs a previous process left in flight
	recovered, err := jobQueue.Recover(ctx)
	if err != nil {
		log.Fatalf("Failed to recover in-flight jobs: %v", err)
	}
	if recovered > 0 {
		log.Printf("♻️  Requeued %d in-flight job(s)", recovered)
	}

	// Wire repositories
	stores := engine.Stores{
		Campaigns:  repository.NewCampaignRepository(db),
		Recipients: repository.NewRecipientRepository(db),
		Variants:   repository.NewVariantRepository(db),
		Channels:   repository.NewChannelRepository(db),
		Records:    repository.NewSendRecordRepository(db),
	}

	// Event sink (optional RabbitMQ publisher)
	var sink engine.EventSink = engine.NopSink{}
	var broker handler.BrokerStatus
	if cfg.Events.Enabled {
		conn, err := events.NewConnection(cfg.GetRabbitMQURL())
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()

		publisher, err := events.NewPublisher(conn, cfg.Events.Queue)
		if err != nil {
			log.Fatalf("Failed to create event publisher: %v", err)
		}
		sink = publisher
		broker = conn
		log.Println("✅ Event publisher connected")
	}

	// Wire engine components
	retry := engine.RetryPolicy{
		MaxAttempts:  cfg.Engine.SendMaxAttempts,
		BackoffDelay: cfg.Engine.SendRetryBackoff,
	}
	planner := engine.NewPlanner(stores, jobQueue, engine.NewDefaultJitter(), retry, sink)
	scheduler := engine.NewScheduler(stores, planner, jobQueue)
	lifecycle := engine.NewLifecycle(stores, planner, jobQueue, sink)

	sender := engine.NewSimSender(cfg.Engine.SimSuccessRate)
	worker := engine.NewWorker(stores, sender, sink)

	// Recovery sweep: plan scheduled campaigns whose start time elapsed
	// while no process was running
	if _, err := scheduler.RecoverDue(ctx); err != nil {
		log.Printf("WARNING: recovery sweep failed: %v", err)
	}

	// Start the job runner
	runner := queue.NewRunner(jobQueue, cfg.Queue.Concurrency, cfg.Queue.PollInterval)
	runner.Register(queue.KindScheduleTrigger, scheduler.HandleTrigger)
	runner.Register(queue.KindSend, worker.HandleSend)
	runner.Start(ctx)
	log.Printf("✅ Runner started with %d workers", cfg.Queue.Concurrency)

	// HTTP control surface
	campaignHandler := handler.NewCampaignHandler(scheduler, lifecycle, stores.Campaigns)
	healthHandler := handler.NewHealthHandler(db, jobQueue, broker, version)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
	router.HandleFunc("/campaigns/{id}/schedule", campaignHandler.Schedule).Methods("POST")
	router.HandleFunc("/campaigns/{id}/schedule", campaignHandler.CancelSchedule).Methods("DELETE")
	router.HandleFunc("/campaigns/{id}/pause", campaignHandler.Pause).Methods("POST")
	router.HandleFunc("/campaigns/{id}/resume", campaignHandler.Resume).Methods("POST")
	router.HandleFunc("/campaigns/{id}/cancel", campaignHandler.Cancel).Methods("POST")
	router.HandleFunc("/campaigns/{id}/progress", campaignHandler.Progress).Methods("GET")

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Engine listening on port %s", cfg.Server.Port)
		log.Printf("🌍 Environment: %s", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	cancel()
	runner.Stop()

	log.Println("✅ Engine stopped")
}
