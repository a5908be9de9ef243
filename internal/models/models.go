package models

// CreateReservationRequest - request body for creating a seat hold
type CreateReservationRequest struct {
	EventID int64     `json:"event_id" binding:"required"`
	Seats   []SeatRef `json:"seats" binding:"required"`
}

// CreateReservationResponse - draft reservation plus conflicting seats
// when the hold was rejected
type CreateReservationResponse struct {
	Message          string       `json:"message"`
	Reservation      *Reservation `json:"reservation,omitempty"`
	UnavailableSeats []SeatRef    `json:"unavailable_seats,omitempty"`
}

// ReservationListResponse - one page of reservations
type ReservationListResponse struct {
	Reservations []Reservation `json:"reservations"`
	TotalPages   int           `json:"total_pages"`
	Page         int           `json:"page"`
}

// CheckoutResponse - payment URL for a draft reservation
type CheckoutResponse struct {
	ReservationID string `json:"reservation_id"`
	PaymentURL    string `json:"payment_url"`
}

// CreateEventRequest - admin request to create an event
type CreateEventRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	Date        string  `json:"date" binding:"required"`
	TicketPrice int64   `json:"ticket_price" binding:"required"`
	HallID      int64   `json:"hall_id" binding:"required"`
	Poster      *string `json:"poster,omitempty"`
}

// CreateEventResponse - id of the created event
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// EventDetailResponse - event plus its seat map
type EventDetailResponse struct {
	Event Event  `json:"event"`
	Seats []Seat `json:"seats"`
}

// ListEventsResponseItem - one element of the event list
type ListEventsResponseItem struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	TotalSeats int    `json:"total_seats"`
}
