package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// LocationRepository reads rooms and facilities.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository constructs a LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// ListForScheduling returns all locations ordered by id.
func (r *LocationRepository) ListForScheduling(ctx context.Context) ([]models.Location, error) {
	const query = `SELECT id, name, location_type_id, capacity, bookable FROM locations ORDER BY id`
	var locations []models.Location
	if err := r.db.SelectContext(ctx, &locations, query); err != nil {
		return nil, fmt.Errorf("list locations for scheduling: %w", err)
	}
	return locations, nil
}
