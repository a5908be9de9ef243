package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/stan.go"

	"tessera/internal/cache"
	"tessera/internal/config"
	"tessera/internal/database"
	"tessera/internal/external"
	"tessera/internal/handlers"
	"tessera/internal/jobs"
	"tessera/internal/messaging"
	"tessera/internal/metrics"
	"tessera/internal/middleware"
	"tessera/internal/models"
	"tessera/internal/repository"
	"tessera/internal/search"
	"tessera/internal/service"
)

// Server wires the HTTP API together. Everything with process-wide
// lifetime (timer registry, cache client, publisher) is constructed here
// once and injected; nothing is reached through package globals.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	cache    *cache.Client
	nats     *messaging.NATSClient
	services *service.Services
	repos    *repository.Repositories
	sweep    *jobs.ExpirySweep
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	cacheClient, err := cache.New(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	searchClient, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("Failed to connect to Elasticsearch: %v", err)
	}

	paymentClient := external.NewPaymentClient(cfg.Payment)

	m := metrics.New()

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, cacheClient, natsClient, searchClient, paymentClient, m, service.Config{
		HoldTTL:  cfg.Reservations.HoldTTL,
		MaxSeats: cfg.Reservations.MaxSeats,
		PageSize: cfg.Reservations.PageSize,
	})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(m.Middleware())

	// Payments can land on any instance; the instance holding the timer
	// hears about them here and drops it instead of firing a doomed
	// expiry. The persisted deadline stays authoritative either way.
	_, err = natsClient.Subscribe(models.EventReservationPaid, func(msg *stan.Msg) {
		var evt models.ReservationPaidEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			slog.Error("Failed to decode reservation paid event", "error", err)
			return
		}
		services.Reservations.ReleaseHoldTimer(evt.UserID)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to payment events: %v", err)
	}

	sweep := jobs.NewExpirySweep(services.Reservations, cfg.Reservations.SweepInterval)
	sweep.Start(context.Background())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		cache:    cacheClient,
		nats:     natsClient,
		services: services,
		repos:    repos,
		sweep:    sweep,
	}

	server.setupRoutes(m)

	return server
}

func (s *Server) setupRoutes(m *metrics.Metrics) {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.BasicAuth(s.repos.Users))
	{
		events := api.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/search", h.SearchEvents)
			events.GET("/:id", h.GetEvent)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("", h.CreateReservation)
			reservations.GET("", h.ListReservations)
			reservations.GET("/user/:userId", h.ListUserReservations)
			reservations.GET("/:id", h.GetReservation)
			reservations.PATCH("/:id/cancel", h.CancelReservation)
			reservations.DELETE("/:id", h.DeleteReservation)
			reservations.POST("/:id/checkout", h.CreateCheckoutSession)
		}

		payments := api.Group("/payments")
		{
			payments.GET("/success", h.NotifyPaymentCompleted)
			payments.GET("/fail", h.NotifyPaymentFailed)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", m.Handler())
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "tessera-api",
		"version": "1.0.0",
	})
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter returns the router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup stops the sweep and closes the outbound connections
func (s *Server) Cleanup() error {
	if s.sweep != nil {
		s.sweep.Stop()
	}

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
