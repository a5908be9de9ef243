package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tessera/internal/cache"
	"tessera/internal/config"
	"tessera/internal/database"
	"tessera/internal/external"
	"tessera/internal/holds"
	"tessera/internal/jobs"
	"tessera/internal/logger"
	"tessera/internal/messaging"
	"tessera/internal/metrics"
	"tessera/internal/repository"
	"tessera/internal/service"
)

// The sweeper reconciles hold deadlines independently of the API
// instances: any draft reservation past its persisted hold_expires_at is
// expired here, so holds survive API restarts and instance failures.
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file: %v", err)
	}

	cfg := config.Load()
	cfg.NATS.ClientID = "tessera-sweeper"
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	cacheClient, err := cache.New(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cacheClient.Close()

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsClient.Close()

	repos := repository.NewRepositories(db)
	reservations := service.NewReservationService(
		repos.Events, repos.Seats, repos.Reservations,
		cacheClient, natsClient, external.NewPaymentClient(cfg.Payment),
		holds.New(), metrics.New(), service.Config{
			HoldTTL:  cfg.Reservations.HoldTTL,
			MaxSeats: cfg.Reservations.MaxSeats,
			PageSize: cfg.Reservations.PageSize,
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweep := jobs.NewExpirySweep(reservations, cfg.Reservations.SweepInterval)
	sweep.Start(ctx)

	log.Println("Sweeper started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down sweeper...")
	sweep.Stop()
	log.Println("Sweeper stopped")
}
