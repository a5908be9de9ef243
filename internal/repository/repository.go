package repository

import (
	"tessera/internal/database"
)

type Repositories struct {
	Halls        *HallRepository
	Events       *EventRepository
	Seats        *SeatRepository
	Reservations *ReservationRepository
	Users        *UserRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Halls:        NewHallRepository(db),
		Events:       NewEventRepository(db),
		Seats:        NewSeatRepository(db),
		Reservations: NewReservationRepository(db),
		Users:        NewUserRepository(db),
	}
}
