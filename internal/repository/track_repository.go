package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TrackRepository resolves the branch behind each track.
type TrackRepository struct {
	db *sqlx.DB
}

// NewTrackRepository constructs a TrackRepository.
func NewTrackRepository(db *sqlx.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// BranchMap returns track id to branch id. Tracks without a branch map to nil.
func (r *TrackRepository) BranchMap(ctx context.Context) (map[string]*string, error) {
	const query = `SELECT id, branch_id FROM tracks`
	var rows []models.TrackBranch
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list track branches: %w", err)
	}
	result := make(map[string]*string, len(rows))
	for _, row := range rows {
		result[row.TrackID] = row.BranchID
	}
	return result, nil
}
