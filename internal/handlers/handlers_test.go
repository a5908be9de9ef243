package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tessera/internal/errors"
	"tessera/internal/holds"
	"tessera/internal/metrics"
	"tessera/internal/models"
	"tessera/internal/service"
)

// The router under test runs the real reservation service over an
// in-memory store, so these tests cover binding, identity plumbing and
// the error-to-status mapping end to end.

type stubStore struct {
	mu           sync.Mutex
	event        models.Event
	seats        map[models.SeatRef]*models.Seat
	reservations map[string]*models.Reservation
}

func newStubStore() *stubStore {
	s := &stubStore{
		event:        models.Event{ID: 1, Name: "Jazz Night", Date: time.Now().Add(24 * time.Hour), TicketPrice: 2500, HallID: 1},
		seats:        make(map[models.SeatRef]*models.Seat),
		reservations: make(map[string]*models.Reservation),
	}
	for n := 1; n <= 5; n++ {
		ref := models.SeatRef{Row: "A", Number: n}
		s.seats[ref] = &models.Seat{Row: "A", Number: n}
	}
	return s
}

func (s *stubStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	if id != s.event.ID {
		return nil, nil
	}
	cp := s.event
	return &cp, nil
}

func (s *stubStore) GetByEventID(ctx context.Context, eventID int64) ([]models.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Seat, 0, len(s.seats))
	for _, seat := range s.seats {
		out = append(out, *seat)
	}
	return out, nil
}

func (s *stubStore) FindAvailable(ctx context.Context, eventID int64, requested []models.SeatRef) ([]models.SeatRef, []models.SeatRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var available, unavailable []models.SeatRef
	for _, ref := range requested {
		seat, ok := s.seats[ref]
		if !ok {
			return nil, nil, fmt.Errorf("seat %s%d: %w", ref.Row, ref.Number, apperrors.ErrSeatNotFound)
		}
		if seat.IsReserved {
			unavailable = append(unavailable, ref)
		} else {
			available = append(available, ref)
		}
	}
	return available, unavailable, nil
}

type stubReservations struct {
	*stubStore
}

func (s *stubStore) CreateWithSeats(ctx context.Context, res *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range res.Seats {
		if seat, ok := s.seats[ref]; !ok || seat.IsReserved {
			return fmt.Errorf("seat %s%d: %w", ref.Row, ref.Number, apperrors.ErrSeatUnavailable)
		}
	}
	for _, ref := range res.Seats {
		id := res.ID
		s.seats[ref].IsReserved = true
		s.seats[ref].ReservationID = &id
	}
	cp := *res
	s.reservations[res.ID] = &cp
	return nil
}

func (s *stubStore) GetReservation(id string) *models.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil
	}
	cp := *res
	return &cp
}

func (s *stubReservations) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	return s.GetReservation(id), nil
}

func (s *stubStore) GetByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Reservation{}
	for _, res := range s.reservations {
		if res.UserID == userID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (s *stubStore) GetAll(ctx context.Context) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Reservation{}
	for _, res := range s.reservations {
		out = append(out, *res)
	}
	return out, nil
}

func (s *stubStore) GetExpired(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	return nil, nil
}

func (s *stubStore) MarkPaid(ctx context.Context, id string, paymentLink string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	res.IsPaid = true
	return nil
}

func (s *stubStore) SetPaymentLink(ctx context.Context, id string, paymentLink string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	res.PaymentLink = &paymentLink
	return nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, id)
	return nil
}

func (s *stubStore) ReleaseSeats(ctx context.Context, res *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range s.seats {
		if seat.ReservationID != nil && *seat.ReservationID == res.ID {
			seat.IsReserved = false
			seat.ReservationID = nil
		}
	}
	return nil
}

func (s *stubStore) ReassertSeats(ctx context.Context, res *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range res.Seats {
		if seat, ok := s.seats[ref]; ok {
			id := res.ID
			seat.IsReserved = true
			seat.ReservationID = &id
		}
	}
	return nil
}

func (s *stubStore) ReleaseIfUnpaid(ctx context.Context, res *models.Reservation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reservations[res.ID]
	if !ok || stored.IsPaid {
		return false, nil
	}
	for _, seat := range s.seats {
		if seat.ReservationID != nil && *seat.ReservationID == res.ID {
			seat.IsReserved = false
			seat.ReservationID = nil
		}
	}
	delete(s.reservations, res.ID)
	return true, nil
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string, dest interface{}) bool { return false }
func (noopCache) Set(ctx context.Context, key string, value interface{})    {}
func (noopCache) Delete(ctx context.Context, key string)                    {}

type noopPublisher struct{}

func (noopPublisher) Publish(subject string, data interface{}) error { return nil }

type stubGateway struct{}

func (stubGateway) CreateSession(ctx context.Context, res *models.Reservation, eventName string) (string, error) {
	return "https://pay.test/session/" + res.ID, nil
}

func identityAs(id models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("identity", id)
		c.Next()
	}
}

func setupRouter(t *testing.T, caller models.Identity) (*gin.Engine, *stubStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newStubStore()
	reservations := service.NewReservationService(
		store, store, &stubReservations{store},
		noopCache{}, noopPublisher{}, stubGateway{},
		holds.New(), metrics.New(),
		service.Config{HoldTTL: time.Minute, MaxSeats: 5, PageSize: 10})

	h := NewHandlers(&service.Services{Reservations: reservations})

	r := gin.New()
	api := r.Group("/api")
	api.Use(identityAs(caller))
	{
		res := api.Group("/reservations")
		{
			res.POST("", h.CreateReservation)
			res.GET("", h.ListReservations)
			res.GET("/user/:userId", h.ListUserReservations)
			res.GET("/:id", h.GetReservation)
			res.PATCH("/:id/cancel", h.CancelReservation)
			res.DELETE("/:id", h.DeleteReservation)
			res.POST("/:id/checkout", h.CreateCheckoutSession)
		}
		payments := api.Group("/payments")
		{
			payments.GET("/success", h.NotifyPaymentCompleted)
			payments.GET("/fail", h.NotifyPaymentFailed)
		}
	}
	return r, store
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createHold(t *testing.T, r *gin.Engine, seats ...models.SeatRef) models.Reservation {
	t.Helper()
	w := doJSON(r, "POST", "/api/reservations", models.CreateReservationRequest{EventID: 1, Seats: seats})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.CreateReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Reservation)
	return *resp.Reservation
}

func TestCreateReservation(t *testing.T) {
	r, _ := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})

	res := createHold(t, r, models.SeatRef{Row: "A", Number: 1}, models.SeatRef{Row: "A", Number: 2})
	assert.Equal(t, int64(1), res.UserID)
	assert.Equal(t, int64(5000), res.Price)
	assert.False(t, res.IsPaid)
}

func TestCreateReservationConflictBody(t *testing.T) {
	r, _ := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	res := createHold(t, r, models.SeatRef{Row: "A", Number: 1})

	// Pay the first hold so the next request fails on the seat, not on
	// the one-hold-per-user rule.
	w := doJSON(r, "GET", "/api/payments/success?reservationId="+res.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "POST", "/api/reservations", models.CreateReservationRequest{
		EventID: 1,
		Seats:   []models.SeatRef{{Row: "A", Number: 1}, {Row: "A", Number: 2}},
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var resp models.CreateReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Some seats are already reserved", resp.Message)
	assert.Equal(t, []models.SeatRef{{Row: "A", Number: 1}}, resp.UnavailableSeats)
	assert.Nil(t, resp.Reservation)
}

func TestCreateReservationHoldInProgress(t *testing.T) {
	r, _ := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	createHold(t, r, models.SeatRef{Row: "A", Number: 1})

	w := doJSON(r, "POST", "/api/reservations", models.CreateReservationRequest{
		EventID: 1,
		Seats:   []models.SeatRef{{Row: "A", Number: 2}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateReservationBadRequest(t *testing.T) {
	r, _ := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})

	w := doJSON(r, "POST", "/api/reservations", models.CreateReservationRequest{EventID: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req, _ := http.NewRequest("POST", "/api/reservations", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReservationStatuses(t *testing.T) {
	r, _ := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	res := createHold(t, r, models.SeatRef{Row: "A", Number: 1})

	w := doJSON(r, "GET", "/api/reservations/"+res.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "GET", "/api/reservations/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReservationsAdminOnly(t *testing.T) {
	r, _ := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	w := doJSON(r, "GET", "/api/reservations", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, _ := setupRouter(t, models.Identity{UserID: 9, Role: models.RoleAdmin})
	w = doJSON(admin, "GET", "/api/reservations?page=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ReservationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
}

func TestListUserReservations(t *testing.T) {
	r, _ := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	createHold(t, r, models.SeatRef{Row: "A", Number: 1})

	w := doJSON(r, "GET", "/api/reservations/user/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ReservationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Reservations, 1)

	w = doJSON(r, "GET", "/api/reservations/user/2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, "GET", "/api/reservations/user/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutAndPaymentCallbacks(t *testing.T) {
	r, store := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	res := createHold(t, r, models.SeatRef{Row: "A", Number: 1})

	w := doJSON(r, "POST", "/api/reservations/"+res.ID+"/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var checkout models.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkout))
	assert.NotEmpty(t, checkout.PaymentURL)

	w = doJSON(r, "GET", "/api/payments/success?reservationId="+res.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	stored := store.GetReservation(res.ID)
	require.NotNil(t, stored)
	assert.True(t, stored.IsPaid)

	w = doJSON(r, "GET", "/api/payments/success", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "GET", "/api/payments/success?reservationId=no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentFailReleasesHold(t *testing.T) {
	r, store := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	res := createHold(t, r, models.SeatRef{Row: "A", Number: 1})

	w := doJSON(r, "GET", "/api/payments/fail?reservationId="+res.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Nil(t, store.GetReservation(res.ID))

	// Gateway retries deliver the callback again; same outcome.
	w = doJSON(r, "GET", "/api/payments/fail?reservationId="+res.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelAndDelete(t *testing.T) {
	r, store := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	res := createHold(t, r, models.SeatRef{Row: "A", Number: 1})

	w := doJSON(r, "PATCH", "/api/reservations/"+res.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.GetReservation(res.ID))

	res = createHold(t, r, models.SeatRef{Row: "A", Number: 2})
	w = doJSON(r, "DELETE", "/api/reservations/"+res.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.GetReservation(res.ID))
}

func TestCancelRejectsPaidReservation(t *testing.T) {
	r, store := setupRouter(t, models.Identity{UserID: 1, Role: models.RoleUser})
	res := createHold(t, r, models.SeatRef{Row: "A", Number: 1})

	w := doJSON(r, "GET", "/api/payments/success?reservationId="+res.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "PATCH", "/api/reservations/"+res.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, store.GetReservation(res.ID))

	w = doJSON(r, "DELETE", "/api/reservations/"+res.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.GetReservation(res.ID))
}
