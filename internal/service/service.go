package service

import (
	"context"
	"time"

	"tessera/internal/cache"
	"tessera/internal/external"
	"tessera/internal/holds"
	"tessera/internal/messaging"
	"tessera/internal/metrics"
	"tessera/internal/models"
	"tessera/internal/repository"
	"tessera/internal/search"
)

// Stores consumed by the lifecycle controller. The repository layer
// implements them against Postgres; tests substitute in-memory fakes.

type EventGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

type SeatStore interface {
	GetByEventID(ctx context.Context, eventID int64) ([]models.Seat, error)
	FindAvailable(ctx context.Context, eventID int64, requested []models.SeatRef) (available, unavailable []models.SeatRef, err error)
}

type ReservationStore interface {
	CreateWithSeats(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	GetByUser(ctx context.Context, userID int64) ([]models.Reservation, error)
	GetAll(ctx context.Context) ([]models.Reservation, error)
	GetExpired(ctx context.Context, cutoff time.Time) ([]models.Reservation, error)
	MarkPaid(ctx context.Context, id string, paymentLink string) error
	SetPaymentLink(ctx context.Context, id string, paymentLink string) error
	Delete(ctx context.Context, id string) error
	ReleaseSeats(ctx context.Context, res *models.Reservation) error
	ReleaseIfUnpaid(ctx context.Context, res *models.Reservation) (bool, error)
	ReassertSeats(ctx context.Context, res *models.Reservation) error
}

// Cache is the non-authoritative read accelerator. Implementations fail
// open: Get reports a miss on any fault.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Delete(ctx context.Context, key string)
}

type Publisher interface {
	Publish(subject string, data interface{}) error
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, res *models.Reservation, eventName string) (string, error)
}

// Config holds the lifecycle knobs.
type Config struct {
	HoldTTL  time.Duration
	MaxSeats int
	PageSize int
}

type Services struct {
	Events       *EventService
	Reservations *ReservationService
}

func NewServices(repos *repository.Repositories, cacheClient *cache.Client, natsClient *messaging.NATSClient,
	searchClient *search.Client, paymentClient *external.PaymentClient, m *metrics.Metrics, cfg Config) *Services {

	eventService := NewEventService(repos.Events, repos.Halls, repos.Seats, searchClient, cacheClient)
	reservationService := NewReservationService(
		repos.Events, repos.Seats, repos.Reservations,
		cacheClient, natsClient, paymentClient, holds.New(), m, cfg)

	return &Services{
		Events:       eventService,
		Reservations: reservationService,
	}
}
