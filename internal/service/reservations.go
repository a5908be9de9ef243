package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tessera/internal/cache"
	apperrors "tessera/internal/errors"
	"tessera/internal/holds"
	"tessera/internal/logger"
	"tessera/internal/metrics"
	"tessera/internal/models"
)

// holdPurpose prefixes the timer-registry key; one in-flight unpaid
// reservation per caller at a time.
const holdPurpose = "unpaid-hold"

// expireRetries bounds the retry loop of a timer-driven expiry. A failed
// expiry would leave seats permanently held, so it is retried with
// backoff rather than dropped; the periodic sweep is the final backstop.
const expireRetries = 3

// ReservationService is the lifecycle controller. It orchestrates the
// draft -> paid / released transitions across the seat inventory, the
// reservation ledger, the hold timers and the read-through cache.
type ReservationService struct {
	events  EventGetter
	seats   SeatStore
	store   ReservationStore
	cache   Cache
	nats    Publisher
	payment PaymentGateway
	holds   *holds.Registry
	metrics *metrics.Metrics
	cfg     Config
}

func NewReservationService(events EventGetter, seats SeatStore, store ReservationStore,
	cacheClient Cache, nats Publisher, payment PaymentGateway,
	registry *holds.Registry, m *metrics.Metrics, cfg Config) *ReservationService {

	if cfg.MaxSeats == 0 {
		cfg.MaxSeats = 5
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 10
	}
	if cfg.HoldTTL == 0 {
		cfg.HoldTTL = 30 * time.Second
	}

	return &ReservationService{
		events:  events,
		seats:   seats,
		store:   store,
		cache:   cacheClient,
		nats:    nats,
		payment: payment,
		holds:   registry,
		metrics: m,
		cfg:     cfg,
	}
}

// CreateHold validates the request, claims the seats and writes the
// draft ledger record atomically, then arms the expiry timer. When the
// hold is rejected because seats are taken, the conflicting seats are
// returned alongside ErrSeatUnavailable and nothing is mutated.
func (s *ReservationService) CreateHold(ctx context.Context, caller models.Identity, req *models.CreateReservationRequest) (*models.Reservation, []models.SeatRef, error) {
	// Claim the registry key before validating, so a second request by
	// the same caller is rejected even while this one is still in
	// flight. Any rejection below releases the key again.
	holdKey := holds.Key(holdPurpose, caller.UserID)
	if !s.holds.Acquire(holdKey) {
		return nil, nil, apperrors.ErrHoldAlreadyInProgress
	}
	armed := false
	defer func() {
		if !armed {
			s.holds.Cancel(holdKey)
		}
	}()

	seats := dedupeSeats(req.Seats)
	if len(seats) == 0 {
		return nil, nil, apperrors.ErrEmptySeatSelection
	}
	if len(seats) > s.cfg.MaxSeats {
		return nil, nil, apperrors.ErrTooManySeats
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, nil, apperrors.ErrNotFound
	}
	if time.Now().After(event.Date) {
		return nil, nil, apperrors.ErrEventExpired
	}

	// Pre-check so the caller gets the full conflicting seat list without
	// touching anything. Correctness does not depend on this read: the
	// claim below re-checks each seat under lock.
	_, unavailable, err := s.seats.FindAvailable(ctx, event.ID, seats)
	if err != nil {
		return nil, nil, err
	}
	if len(unavailable) > 0 {
		s.metrics.SeatConflicts.Inc()
		return nil, unavailable, apperrors.ErrSeatUnavailable
	}

	now := time.Now()
	res := &models.Reservation{
		ID:            uuid.New().String(),
		UserID:        caller.UserID,
		EventID:       event.ID,
		HallID:        event.HallID,
		Seats:         seats,
		Price:         int64(len(seats)) * event.TicketPrice,
		CreatedAt:     now,
		EventDate:     event.Date,
		HoldExpiresAt: now.Add(s.cfg.HoldTTL),
	}

	if err := s.store.CreateWithSeats(ctx, res); err != nil {
		if errors.Is(err, apperrors.ErrSeatUnavailable) {
			// Lost the race after the pre-check. Re-read so the caller
			// still sees which seats were contested.
			s.metrics.SeatConflicts.Inc()
			_, unavailable, ferr := s.seats.FindAvailable(ctx, event.ID, seats)
			if ferr != nil {
				unavailable = nil
			}
			return nil, unavailable, apperrors.ErrSeatUnavailable
		}
		return nil, nil, err
	}

	s.metrics.HoldsCreated.Inc()

	s.holds.Arm(holdKey, s.cfg.HoldTTL, func() {
		s.expireWithRetry(res.ID)
	})
	armed = true

	s.refreshReservationCaches(ctx, res.UserID, res.EventID)

	if err := s.nats.Publish(models.EventReservationHeld, models.ReservationHeldEvent{
		ReservationID: res.ID,
		EventID:       res.EventID,
		UserID:        res.UserID,
		Seats:         res.Seats,
		Price:         res.Price,
		ExpiresAt:     res.HoldExpiresAt,
		Timestamp:     now,
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish reservation held event",
			"error", err, "reservation_id", res.ID)
	}

	return res, nil, nil
}

// Checkout opens a payment session for a draft reservation and stores
// the payment URL on the ledger record.
func (s *ReservationService) Checkout(ctx context.Context, caller models.Identity, id string) (*models.CheckoutResponse, error) {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, apperrors.ErrNotFound
	}
	if res.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if res.IsPaid {
		return nil, apperrors.ErrReservationPaid
	}

	event, err := s.events.GetByID(ctx, res.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrNotFound
	}

	url, err := s.payment.CreateSession(ctx, res, event.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.store.SetPaymentLink(ctx, res.ID, url); err != nil {
		return nil, fmt.Errorf("failed to store payment link: %w", err)
	}

	s.refreshReservationCaches(ctx, res.UserID, res.EventID)

	return &models.CheckoutResponse{ReservationID: res.ID, PaymentURL: url}, nil
}

// ConfirmPaid finalizes a reservation once the payment collaborator
// reports success. Flipping the ledger record to paid comes first: it is
// the claim that settles the race against a concurrent release, which
// only removes records still unpaid. A release that won instead makes
// MarkPaid report not-found and no success is acknowledged. The seats
// are then re-stamped and the hold timer cancelled.
func (s *ReservationService) ConfirmPaid(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, apperrors.ErrNotFound
	}

	paymentLink := ""
	if res.PaymentLink != nil {
		paymentLink = *res.PaymentLink
	}
	if err := s.store.MarkPaid(ctx, res.ID, paymentLink); err != nil {
		return nil, fmt.Errorf("failed to mark reservation paid: %w", err)
	}
	res.IsPaid = true

	if err := s.store.ReassertSeats(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to re-stamp seats: %w", err)
	}

	s.holds.Cancel(holds.Key(holdPurpose, res.UserID))
	s.metrics.HoldsConfirmed.Inc()

	s.refreshReservationCaches(ctx, res.UserID, res.EventID)

	if err := s.nats.Publish(models.EventReservationPaid, models.ReservationPaidEvent{
		ReservationID: res.ID,
		EventID:       res.EventID,
		UserID:        res.UserID,
		Price:         res.Price,
		Timestamp:     time.Now(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish reservation paid event",
			"error", err, "reservation_id", res.ID)
	}

	return res, nil
}

// DeclinePayment releases a draft reservation after the payment
// collaborator reports failure or explicit decline. Feeds the same
// terminal state as expiry, without waiting for the hold deadline.
func (s *ReservationService) DeclinePayment(ctx context.Context, id string) error {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		// Already expired or cancelled; nothing left to release.
		return nil
	}
	if res.IsPaid {
		// Stale decline racing a completed payment; payment wins.
		return nil
	}

	s.holds.Cancel(holds.Key(holdPurpose, res.UserID))
	released, err := s.releaseUnpaid(ctx, res, models.EventReservationDeclined, "payment declined")
	if err != nil {
		return err
	}
	if released {
		s.metrics.HoldsDeclined.Inc()
	}
	return nil
}

// Cancel is the explicit cancellation of an unpaid reservation by its
// owner or an admin; paid records are only removed through Delete.
// Cancelling an already-removed reservation is a no-op: the end state is
// the same as if the first call had done the work.
func (s *ReservationService) Cancel(ctx context.Context, caller models.Identity, id string) error {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil
	}
	if res.UserID != caller.UserID && !caller.IsAdmin() {
		return apperrors.ErrForbidden
	}
	if res.IsPaid {
		return apperrors.ErrReservationPaid
	}

	s.holds.Cancel(holds.Key(holdPurpose, res.UserID))
	released, err := s.releaseUnpaid(ctx, res, models.EventReservationCancelled, "cancelled by user")
	if err != nil {
		return err
	}
	if !released {
		// The record changed under us: either removed (same end state)
		// or paid in the meantime.
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get reservation: %w", err)
		}
		if current != nil && current.IsPaid {
			return apperrors.ErrReservationPaid
		}
		return nil
	}
	s.metrics.HoldsCancelled.Inc()
	return nil
}

// Delete removes a reservation, paid or unpaid, releasing its seats
// exactly as Cancel does.
func (s *ReservationService) Delete(ctx context.Context, caller models.Identity, id string) error {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil
	}
	if res.UserID != caller.UserID && !caller.IsAdmin() {
		return apperrors.ErrForbidden
	}

	s.holds.Cancel(holds.Key(holdPurpose, res.UserID))

	if err := s.store.ReleaseSeats(ctx, res); err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	if err := s.store.Delete(ctx, res.ID); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	s.refreshReservationCaches(ctx, res.UserID, res.EventID)

	if err := s.nats.Publish(models.EventReservationCancelled, models.ReservationReleasedEvent{
		ReservationID: res.ID,
		EventID:       res.EventID,
		UserID:        res.UserID,
		Seats:         res.Seats,
		Reason:        "deleted",
		Timestamp:     time.Now(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish reservation released event",
			"error", err, "reservation_id", res.ID, "reason", "deleted")
	}

	s.metrics.HoldsCancelled.Inc()
	return nil
}

// Expire is the hold-timer callback and the sweep entry point. The paid
// check and the release run as one conditional store operation, so a
// payment that completes while the expiry is in flight is never rolled
// back. A missing record means another transition already resolved the
// reservation; a no-op.
func (s *ReservationService) Expire(ctx context.Context, id string) error {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil
	}

	released, err := s.releaseUnpaid(ctx, res, models.EventReservationExpired, "hold expired")
	if err != nil {
		return err
	}
	if released {
		s.metrics.HoldsExpired.Inc()
	}
	return nil
}

// ReleaseHoldTimer drops the in-process hold timer for a user. Called
// when another instance resolved the hold, so the local timer does not
// fire a doomed expiry.
func (s *ReservationService) ReleaseHoldTimer(userID int64) {
	s.holds.Cancel(holds.Key(holdPurpose, userID))
}

// releaseUnpaid frees the seats and removes the ledger record through
// the store's unpaid-only guard, then refreshes every cache key the
// mutation affects. Shared by decline, cancel and expire. Reports false
// without touching anything when the record is gone or paid meanwhile.
func (s *ReservationService) releaseUnpaid(ctx context.Context, res *models.Reservation, subject, reason string) (bool, error) {
	released, err := s.store.ReleaseIfUnpaid(ctx, res)
	if err != nil {
		return false, fmt.Errorf("failed to release reservation: %w", err)
	}
	if !released {
		return false, nil
	}

	s.refreshReservationCaches(ctx, res.UserID, res.EventID)

	if err := s.nats.Publish(subject, models.ReservationReleasedEvent{
		ReservationID: res.ID,
		EventID:       res.EventID,
		UserID:        res.UserID,
		Seats:         res.Seats,
		Reason:        reason,
		Timestamp:     time.Now(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish reservation released event",
			"error", err, "reservation_id", res.ID, "reason", reason)
	}

	return true, nil
}

// expireWithRetry runs the expiry transition from the timer goroutine,
// retrying with backoff when the store is unreachable.
func (s *ReservationService) expireWithRetry(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backoff := time.Second
	for attempt := 1; ; attempt++ {
		err := s.Expire(ctx, id)
		if err == nil {
			return
		}
		logger.Get().Error("Hold expiry failed",
			"error", err, "reservation_id", id, "attempt", attempt)
		if attempt >= expireRetries {
			// The sweep picks it up via the persisted deadline.
			return
		}
		time.Sleep(backoff)
		backoff *= 2
	}
}

// SweepExpired expires every unpaid reservation past its persisted hold
// deadline. Covers holds whose in-process timers were lost to a restart
// and expiries that exhausted their retries.
func (s *ReservationService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.store.GetExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	swept := 0
	for _, res := range expired {
		if err := s.Expire(ctx, res.ID); err != nil {
			logger.WithContext(ctx).Error("Failed to expire reservation during sweep",
				"error", err, "reservation_id", res.ID)
			continue
		}
		s.holds.Cancel(holds.Key(holdPurpose, res.UserID))
		swept++
	}

	return swept, nil
}

// GetByID returns one reservation, readable by its owner or an admin.
func (s *ReservationService) GetByID(ctx context.Context, caller models.Identity, id string) (*models.Reservation, error) {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, apperrors.ErrNotFound
	}
	if res.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return res, nil
}

// ListForUser returns one page of a user's reservations through the
// cache, readable by that user or an admin.
func (s *ReservationService) ListForUser(ctx context.Context, caller models.Identity, userID int64, page int) (*models.ReservationListResponse, error) {
	if caller.UserID != userID && !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	key := cache.UserReservationsKey(userID)
	var reservations []models.Reservation
	if s.cache.Get(ctx, key, &reservations) {
		s.metrics.CacheHits.Inc()
	} else {
		s.metrics.CacheMisses.Inc()
		var err error
		reservations, err = s.store.GetByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get reservations: %w", err)
		}
		s.cache.Set(ctx, key, reservations)
	}

	return s.paginate(reservations, page), nil
}

// ListAll returns one page of the global reservation list; admin only.
func (s *ReservationService) ListAll(ctx context.Context, caller models.Identity, page int) (*models.ReservationListResponse, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	key := cache.AllReservationsKey()
	var reservations []models.Reservation
	if s.cache.Get(ctx, key, &reservations) {
		s.metrics.CacheHits.Inc()
	} else {
		s.metrics.CacheMisses.Inc()
		var err error
		reservations, err = s.store.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get reservations: %w", err)
		}
		s.cache.Set(ctx, key, reservations)
	}

	return s.paginate(reservations, page), nil
}

func (s *ReservationService) paginate(reservations []models.Reservation, page int) *models.ReservationListResponse {
	if page < 1 {
		page = 1
	}
	size := s.cfg.PageSize

	totalPages := (len(reservations) + size - 1) / size
	start := (page - 1) * size
	if start > len(reservations) {
		start = len(reservations)
	}
	end := start + size
	if end > len(reservations) {
		end = len(reservations)
	}

	items := reservations[start:end]
	if items == nil {
		items = []models.Reservation{}
	}

	return &models.ReservationListResponse{
		Reservations: items,
		TotalPages:   totalPages,
		Page:         page,
	}
}

// refreshReservationCaches overwrites every key affected by a ledger or
// inventory mutation with the recomputed value. Proactive overwrite, not
// TTL expiry: a staleness window longer than the hold duration would let
// callers see held seats as free.
func (s *ReservationService) refreshReservationCaches(ctx context.Context, userID, eventID int64) {
	if userRes, err := s.store.GetByUser(ctx, userID); err == nil {
		s.cache.Set(ctx, cache.UserReservationsKey(userID), userRes)
	} else {
		s.cache.Delete(ctx, cache.UserReservationsKey(userID))
	}

	if allRes, err := s.store.GetAll(ctx); err == nil {
		s.cache.Set(ctx, cache.AllReservationsKey(), allRes)
	} else {
		s.cache.Delete(ctx, cache.AllReservationsKey())
	}

	s.refreshEventCache(ctx, eventID)
}

func (s *ReservationService) refreshEventCache(ctx context.Context, eventID int64) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil || event == nil {
		s.cache.Delete(ctx, cache.EventKey(eventID))
		return
	}
	seats, err := s.seats.GetByEventID(ctx, eventID)
	if err != nil {
		s.cache.Delete(ctx, cache.EventKey(eventID))
		return
	}
	s.cache.Set(ctx, cache.EventKey(eventID), models.EventDetailResponse{Event: *event, Seats: seats})
}

func dedupeSeats(seats []models.SeatRef) []models.SeatRef {
	seen := make(map[models.SeatRef]struct{}, len(seats))
	out := make([]models.SeatRef, 0, len(seats))
	for _, seat := range seats {
		if _, ok := seen[seat]; ok {
			continue
		}
		seen[seat] = struct{}{}
		out = append(out, seat)
	}
	return out
}
