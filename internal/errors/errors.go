package errors

import "errors"

// Taxonomy surfaced by the reservation lifecycle. Handlers map these to
// stable HTTP result codes; everything else is a generic failure.
var (
	ErrSeatUnavailable       = errors.New("one or more seats are already reserved")
	ErrSeatNotFound          = errors.New("seat does not exist in the hall layout")
	ErrTooManySeats          = errors.New("too many seats requested for one reservation")
	ErrEmptySeatSelection    = errors.New("no seats selected")
	ErrEventExpired          = errors.New("event date has already passed")
	ErrHoldAlreadyInProgress = errors.New("an unpaid reservation is already in progress")
	ErrReservationPaid       = errors.New("reservation is already paid")
	ErrNotFound              = errors.New("record not found")
	ErrForbidden             = errors.New("operation is forbidden for user")
	ErrDuplicateReservation  = errors.New("reservation with this id already exists")
)
