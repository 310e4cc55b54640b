package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// AssignmentOverrideRepository reads manual teacher-lesson overrides.
type AssignmentOverrideRepository struct {
	db *sqlx.DB
}

// NewAssignmentOverrideRepository constructs an AssignmentOverrideRepository.
func NewAssignmentOverrideRepository(db *sqlx.DB) *AssignmentOverrideRepository {
	return &AssignmentOverrideRepository{db: db}
}

// List returns all overrides ordered by lesson then teacher.
func (r *AssignmentOverrideRepository) List(ctx context.Context) ([]models.AssignmentOverride, error) {
	const query = `SELECT teacher_id, lesson_id, kind FROM assignment_overrides ORDER BY lesson_id, teacher_id`
	var overrides []models.AssignmentOverride
	if err := r.db.SelectContext(ctx, &overrides, query); err != nil {
		return nil, fmt.Errorf("list assignment overrides: %w", err)
	}
	return overrides, nil
}
