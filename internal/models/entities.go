package models

import (
	"time"
)

// User represents a registered caller. Identity is resolved upstream of
// the reservation lifecycle; services only see UserID and Role.
type User struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	IsActive     bool      `json:"is_active" db:"is_active"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the caller identity the lifecycle controller trusts as given.
type Identity struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// Hall is an immutable seat layout template used to seed a new event's
// seat inventory. Never mutated after creation.
type Hall struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Type        string `json:"type" db:"type"`
	Rows        int    `json:"rows" db:"rows_count"`
	SeatsPerRow int    `json:"seats_per_row" db:"seats_per_row"`
}

// SeatRef identifies one seat within an event's hall layout.
type SeatRef struct {
	Row    string `json:"row" binding:"required"`
	Number int    `json:"number" binding:"required"`
}

// Seat is one inventory record. Mutated only by the reservation lifecycle.
type Seat struct {
	Row           string  `json:"row" db:"row_label"`
	Number        int     `json:"number" db:"seat_number"`
	IsReserved    bool    `json:"is_reserved" db:"is_reserved"`
	ReservationID *string `json:"reservation_id,omitempty" db:"reservation_id"`
}

// Ref returns the seat's identity within its event.
func (s Seat) Ref() SeatRef {
	return SeatRef{Row: s.Row, Number: s.Number}
}

// Event owns its embedded seat inventory. TicketPrice is in minor
// currency units (cents).
type Event struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Date        time.Time `json:"date" db:"event_date"`
	TicketPrice int64     `json:"ticket_price" db:"ticket_price"`
	HallID      int64     `json:"hall_id" db:"hall_id"`
	Poster      *string   `json:"poster,omitempty" db:"poster"`
	TotalSeats  int       `json:"total_seats" db:"total_seats"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Reservation is one ledger record. A draft (unpaid) reservation holds
// its seats until payment, cancellation or hold expiry. Price is in
// minor currency units.
type Reservation struct {
	ID            string    `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	EventID       int64     `json:"event_id" db:"event_id"`
	HallID        int64     `json:"hall_id" db:"hall_id"`
	Seats         []SeatRef `json:"seats"`
	Price         int64     `json:"price" db:"price"`
	IsPaid        bool      `json:"is_paid" db:"is_paid"`
	PaymentLink   *string   `json:"payment_link,omitempty" db:"payment_link"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	EventDate     time.Time `json:"event_date" db:"event_date"`
	HoldExpiresAt time.Time `json:"hold_expires_at" db:"hold_expires_at"`
}
