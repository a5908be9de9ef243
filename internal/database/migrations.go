package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createHallsTable,
		createEventsTable,
		createSeatsTable,
		createReservationsTable,
		createReservationSeatsTable,
		createReservationIndexes,
		seedHalls,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'user',
    registered_at TIMESTAMP NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    CHECK (role IN ('user', 'admin'))
);`

const createHallsTable = `
CREATE TABLE IF NOT EXISTS halls (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) UNIQUE NOT NULL,
    type VARCHAR(50) NOT NULL,
    rows_count INTEGER NOT NULL,
    seats_per_row INTEGER NOT NULL
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    name VARCHAR(500) NOT NULL,
    description TEXT,
    event_date TIMESTAMP NOT NULL,
    ticket_price BIGINT NOT NULL,
    hall_id INTEGER NOT NULL REFERENCES halls(id),
    poster VARCHAR(500),
    total_seats INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createSeatsTable = `
CREATE TABLE IF NOT EXISTS seats (
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    row_label VARCHAR(4) NOT NULL,
    seat_number INTEGER NOT NULL,
    is_reserved BOOLEAN NOT NULL DEFAULT FALSE,
    reservation_id UUID,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    PRIMARY KEY (event_id, row_label, seat_number)
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id UUID PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(user_id),
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    hall_id INTEGER NOT NULL REFERENCES halls(id),
    price BIGINT NOT NULL,
    is_paid BOOLEAN NOT NULL DEFAULT FALSE,
    payment_link VARCHAR(1000),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    event_date TIMESTAMP NOT NULL,
    hold_expires_at TIMESTAMP NOT NULL
);`

const createReservationSeatsTable = `
CREATE TABLE IF NOT EXISTS reservation_seats (
    reservation_id UUID NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
    row_label VARCHAR(4) NOT NULL,
    seat_number INTEGER NOT NULL,

    PRIMARY KEY (reservation_id, row_label, seat_number)
);`

const createReservationIndexes = `
CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id);
CREATE INDEX IF NOT EXISTS idx_reservations_expiry ON reservations(hold_expires_at) WHERE NOT is_paid;
CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date);`

// Stock hall layouts: Small Hall rows A-E with 10 seats each, Large
// Hall rows A-J with 20 seats each.
const seedHalls = `
INSERT INTO halls (name, type, rows_count, seats_per_row)
VALUES ('Small Hall', 'small', 5, 10), ('Large Hall', 'large', 10, 20)
ON CONFLICT (name) DO NOTHING;`
