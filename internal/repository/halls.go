package repository

import (
	"context"
	"database/sql"

	"tessera/internal/database"
	"tessera/internal/models"
)

type HallRepository struct {
	db *database.DB
}

func NewHallRepository(db *database.DB) *HallRepository {
	return &HallRepository{db: db}
}

func (r *HallRepository) GetByID(ctx context.Context, id int64) (*models.Hall, error) {
	hall := &models.Hall{}
	query := `SELECT id, name, type, rows_count, seats_per_row FROM halls WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&hall.ID,
		&hall.Name,
		&hall.Type,
		&hall.Rows,
		&hall.SeatsPerRow,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return hall, err
}

func (r *HallRepository) GetAll(ctx context.Context) ([]models.Hall, error) {
	var halls []models.Hall
	query := `SELECT id, name, type, rows_count, seats_per_row FROM halls ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var hall models.Hall
		if err := rows.Scan(&hall.ID, &hall.Name, &hall.Type, &hall.Rows, &hall.SeatsPerRow); err != nil {
			return nil, err
		}
		halls = append(halls, hall)
	}

	return halls, rows.Err()
}
