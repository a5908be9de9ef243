package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tessera/internal/database"
	apperrors "tessera/internal/errors"
	"tessera/internal/models"
)

type SeatRepository struct {
	db *database.DB
}

func NewSeatRepository(db *database.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// SeedForEvent creates the event's seat inventory from a hall layout.
// Rows are labeled A, B, C... like the stock hall templates.
func (r *SeatRepository) SeedForEvent(ctx context.Context, eventID int64, hall *models.Hall) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO seats (event_id, row_label, seat_number) VALUES ($1, $2, $3)`
	for row := 0; row < hall.Rows; row++ {
		label := rowLabel(row)
		for seat := 1; seat <= hall.SeatsPerRow; seat++ {
			if _, err := tx.ExecContext(ctx, query, eventID, label, seat); err != nil {
				return err
			}
		}
	}

	total := hall.Rows * hall.SeatsPerRow
	if _, err := tx.ExecContext(ctx, `UPDATE events SET total_seats = $1 WHERE id = $2`, total, eventID); err != nil {
		return err
	}

	return tx.Commit()
}

func rowLabel(row int) string {
	if row < 26 {
		return string(rune('A' + row))
	}
	return fmt.Sprintf("%c%c", 'A'+row/26-1, 'A'+row%26)
}

// GetByEventID returns the full seat map ordered by row and number.
func (r *SeatRepository) GetByEventID(ctx context.Context, eventID int64) ([]models.Seat, error) {
	var seats []models.Seat
	query := `
		SELECT row_label, seat_number, is_reserved, reservation_id
		FROM seats
		WHERE event_id = $1
		ORDER BY row_label, seat_number`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat models.Seat
		if err := rows.Scan(&seat.Row, &seat.Number, &seat.IsReserved, &seat.ReservationID); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

// FindAvailable splits the requested seats into available and unavailable.
// Seats missing from the layout are reported via the error. Read-only:
// the authoritative claim happens inside the reservation transaction.
func (r *SeatRepository) FindAvailable(ctx context.Context, eventID int64, requested []models.SeatRef) (available, unavailable []models.SeatRef, err error) {
	query := `SELECT is_reserved FROM seats WHERE event_id = $1 AND row_label = $2 AND seat_number = $3`

	for _, ref := range requested {
		var reserved bool
		err := r.db.QueryRowContext(ctx, query, eventID, ref.Row, ref.Number).Scan(&reserved)
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("seat %s%d: %w", ref.Row, ref.Number, apperrors.ErrSeatNotFound)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("seat %s%d: %w", ref.Row, ref.Number, err)
		}
		if reserved {
			unavailable = append(unavailable, ref)
		} else {
			available = append(available, ref)
		}
	}

	return available, unavailable, nil
}
