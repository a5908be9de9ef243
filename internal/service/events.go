package service

import (
	"context"
	"fmt"
	"time"

	"tessera/internal/cache"
	apperrors "tessera/internal/errors"
	"tessera/internal/logger"
	"tessera/internal/models"
	"tessera/internal/repository"
	"tessera/internal/search"
)

// EventService covers the browse side: create events from hall
// templates, list, detail with seat map, text search.
type EventService struct {
	events *repository.EventRepository
	halls  *repository.HallRepository
	seats  *repository.SeatRepository
	search *search.Client
	cache  Cache
}

func NewEventService(events *repository.EventRepository, halls *repository.HallRepository,
	seats *repository.SeatRepository, searchClient *search.Client, cacheClient Cache) *EventService {
	return &EventService{
		events: events,
		halls:  halls,
		seats:  seats,
		search: searchClient,
		cache:  cacheClient,
	}
}

// Create persists the event and seeds its seat inventory from the hall
// layout, then indexes it for search.
func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error) {
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid event date %q: %w", req.Date, err)
	}

	hall, err := s.halls.GetByID(ctx, req.HallID)
	if err != nil {
		return nil, fmt.Errorf("failed to get hall: %w", err)
	}
	if hall == nil {
		return nil, apperrors.ErrNotFound
	}

	event := &models.Event{
		Name:        req.Name,
		Description: req.Description,
		Date:        date,
		TicketPrice: req.TicketPrice,
		HallID:      hall.ID,
		Poster:      req.Poster,
		TotalSeats:  hall.Rows * hall.SeatsPerRow,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if err := s.seats.SeedForEvent(ctx, event.ID, hall); err != nil {
		return nil, fmt.Errorf("failed to seed seats: %w", err)
	}

	if s.search != nil {
		if err := s.search.IndexEvent(ctx, event); err != nil {
			logger.WithContext(ctx).Error("Failed to index event for search",
				"error", err, "event_id", event.ID)
		}
	}

	return &models.CreateEventResponse{ID: event.ID}, nil
}

func (s *EventService) List(ctx context.Context) ([]models.ListEventsResponseItem, error) {
	events, err := s.events.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	items := make([]models.ListEventsResponseItem, len(events))
	for i, event := range events {
		items[i] = models.ListEventsResponseItem{
			ID:         event.ID,
			Name:       event.Name,
			Date:       event.Date.Format(time.RFC3339),
			TotalSeats: event.TotalSeats,
		}
	}

	return items, nil
}

// GetDetail returns the event with its seat map, through the cache.
func (s *EventService) GetDetail(ctx context.Context, id int64) (*models.EventDetailResponse, error) {
	key := cache.EventKey(id)
	var detail models.EventDetailResponse
	if s.cache.Get(ctx, key, &detail) {
		return &detail, nil
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrNotFound
	}

	seats, err := s.seats.GetByEventID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}

	detail = models.EventDetailResponse{Event: *event, Seats: seats}
	s.cache.Set(ctx, key, detail)

	return &detail, nil
}

// Search runs a text query against the search index.
func (s *EventService) Search(ctx context.Context, query string) ([]models.ListEventsResponseItem, error) {
	if s.search == nil {
		return nil, fmt.Errorf("search is not configured")
	}
	return s.search.Search(ctx, query, 25)
}
