package models

import "time"

// NATS subjects published by the reservation lifecycle
const (
	EventReservationHeld      = "reservation.held"
	EventReservationPaid      = "reservation.paid"
	EventReservationDeclined  = "reservation.declined"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationExpired   = "reservation.expired"
)

// ReservationHeldEvent is published when a draft reservation claims seats
type ReservationHeldEvent struct {
	ReservationID string    `json:"reservation_id"`
	EventID       int64     `json:"event_id"`
	UserID        int64     `json:"user_id"`
	Seats         []SeatRef `json:"seats"`
	Price         int64     `json:"price"`
	ExpiresAt     time.Time `json:"expires_at"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationPaidEvent is published when payment confirms a reservation
type ReservationPaidEvent struct {
	ReservationID string    `json:"reservation_id"`
	EventID       int64     `json:"event_id"`
	UserID        int64     `json:"user_id"`
	Price         int64     `json:"price"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationReleasedEvent is published when seats return to the free
// pool, whatever transition caused it (decline, cancel, expiry).
type ReservationReleasedEvent struct {
	ReservationID string    `json:"reservation_id"`
	EventID       int64     `json:"event_id"`
	UserID        int64     `json:"user_id"`
	Seats         []SeatRef `json:"seats"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}
