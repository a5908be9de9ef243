package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"

	"tessera/internal/database"
	apperrors "tessera/internal/errors"
	"tessera/internal/models"
)

type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// CreateWithSeats writes the draft ledger record and claims its seats in
// one transaction. Each seat is locked with FOR UPDATE and claimed only
// if still free, so two racing holds can never both win a seat; losers
// get ErrSeatUnavailable and nothing is visible to subsequent reads.
func (r *ReservationRepository) CreateWithSeats(ctx context.Context, res *models.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock seats in deterministic order to avoid deadlocks between
	// overlapping requests.
	seats := make([]models.SeatRef, len(res.Seats))
	copy(seats, res.Seats)
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Number < seats[j].Number
	})

	for _, seat := range seats {
		var reserved bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_reserved FROM seats WHERE event_id = $1 AND row_label = $2 AND seat_number = $3 FOR UPDATE`,
			res.EventID, seat.Row, seat.Number,
		).Scan(&reserved)
		if err == sql.ErrNoRows {
			return fmt.Errorf("seat %s%d: %w", seat.Row, seat.Number, apperrors.ErrSeatNotFound)
		}
		if err != nil {
			return err
		}
		if reserved {
			return fmt.Errorf("seat %s%d: %w", seat.Row, seat.Number, apperrors.ErrSeatUnavailable)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE seats SET is_reserved = TRUE, reservation_id = $1, updated_at = NOW()
			 WHERE event_id = $2 AND row_label = $3 AND seat_number = $4`,
			res.ID, res.EventID, seat.Row, seat.Number)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations (id, user_id, event_id, hall_id, price, is_paid, created_at, event_date, hold_expires_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8)`,
		res.ID, res.UserID, res.EventID, res.HallID, res.Price, res.CreatedAt, res.EventDate, res.HoldExpiresAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperrors.ErrDuplicateReservation
		}
		return err
	}

	for _, seat := range res.Seats {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reservation_seats (reservation_id, row_label, seat_number) VALUES ($1, $2, $3)`,
			res.ID, seat.Row, seat.Number)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	res := &models.Reservation{}
	query := `
		SELECT id, user_id, event_id, hall_id, price, is_paid, payment_link, created_at, event_date, hold_expires_at
		FROM reservations
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&res.ID,
		&res.UserID,
		&res.EventID,
		&res.HallID,
		&res.Price,
		&res.IsPaid,
		&res.PaymentLink,
		&res.CreatedAt,
		&res.EventDate,
		&res.HoldExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if res.Seats, err = r.getSeats(ctx, res.ID); err != nil {
		return nil, err
	}

	return res, nil
}

func (r *ReservationRepository) getSeats(ctx context.Context, id string) ([]models.SeatRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT row_label, seat_number FROM reservation_seats WHERE reservation_id = $1 ORDER BY row_label, seat_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []models.SeatRef
	for rows.Next() {
		var ref models.SeatRef
		if err := rows.Scan(&ref.Row, &ref.Number); err != nil {
			return nil, err
		}
		seats = append(seats, ref)
	}

	return seats, rows.Err()
}

func (r *ReservationRepository) GetByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	query := `
		SELECT id, user_id, event_id, hall_id, price, is_paid, payment_link, created_at, event_date, hold_expires_at
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.queryList(ctx, query, userID)
}

func (r *ReservationRepository) GetAll(ctx context.Context) ([]models.Reservation, error) {
	query := `
		SELECT id, user_id, event_id, hall_id, price, is_paid, payment_link, created_at, event_date, hold_expires_at
		FROM reservations
		ORDER BY created_at DESC`
	return r.queryList(ctx, query)
}

// GetExpired returns unpaid reservations whose hold deadline has passed.
// Used by the sweep to reconcile holds the in-process timers missed.
func (r *ReservationRepository) GetExpired(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	query := `
		SELECT id, user_id, event_id, hall_id, price, is_paid, payment_link, created_at, event_date, hold_expires_at
		FROM reservations
		WHERE NOT is_paid AND hold_expires_at < $1
		ORDER BY hold_expires_at`
	return r.queryList(ctx, query, cutoff)
}

func (r *ReservationRepository) queryList(ctx context.Context, query string, args ...interface{}) ([]models.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var res models.Reservation
		err := rows.Scan(
			&res.ID,
			&res.UserID,
			&res.EventID,
			&res.HallID,
			&res.Price,
			&res.IsPaid,
			&res.PaymentLink,
			&res.CreatedAt,
			&res.EventDate,
			&res.HoldExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reservations {
		if reservations[i].Seats, err = r.getSeats(ctx, reservations[i].ID); err != nil {
			return nil, err
		}
	}

	return reservations, nil
}

// MarkPaid flips the ledger record to paid and stores the payment link.
func (r *ReservationRepository) MarkPaid(ctx context.Context, id string, paymentLink string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET is_paid = TRUE, payment_link = $2 WHERE id = $1`, id, paymentLink)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetPaymentLink stores the checkout URL on the draft record.
func (r *ReservationRepository) SetPaymentLink(ctx context.Context, id string, paymentLink string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET payment_link = $2 WHERE id = $1`, id, paymentLink)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes the ledger record. No-op when the record is already
// gone, so cancel/expiry retries stay idempotent.
func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	return err
}

// ReleaseSeats frees exactly the seats held by this reservation. The
// reservation_id guard makes the release idempotent and keeps a racing
// re-claim by another reservation untouched.
func (r *ReservationRepository) ReleaseSeats(ctx context.Context, res *models.Reservation) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE seats SET is_reserved = FALSE, reservation_id = NULL, updated_at = NOW()
		 WHERE event_id = $1 AND reservation_id = $2`,
		res.EventID, res.ID)
	return err
}

// ReassertSeats re-stamps the reservation's seats as reserved. Tolerates
// the seats already being marked from the original claim.
func (r *ReservationRepository) ReassertSeats(ctx context.Context, res *models.Reservation) error {
	for _, seat := range res.Seats {
		_, err := r.db.ExecContext(ctx,
			`UPDATE seats SET is_reserved = TRUE, reservation_id = $1, updated_at = NOW()
			 WHERE event_id = $2 AND row_label = $3 AND seat_number = $4
			   AND (reservation_id IS NULL OR reservation_id = $1)`,
			res.ID, res.EventID, seat.Row, seat.Number)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReleaseIfUnpaid frees the seats and removes the ledger record in one
// transaction, but only while the record is still unpaid. The row lock
// serializes against MarkPaid: a payment that commits first makes this a
// no-op, a release that commits first makes MarkPaid report not-found.
// Reports whether the release happened.
func (r *ReservationRepository) ReleaseIfUnpaid(ctx context.Context, res *models.Reservation) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var paid bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_paid FROM reservations WHERE id = $1 FOR UPDATE`, res.ID).Scan(&paid)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if paid {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE seats SET is_reserved = FALSE, reservation_id = NULL, updated_at = NOW()
		 WHERE event_id = $1 AND reservation_id = $2`,
		res.EventID, res.ID)
	if err != nil {
		return false, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, res.ID); err != nil {
		return false, err
	}

	return true, tx.Commit()
}
