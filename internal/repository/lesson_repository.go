package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// LessonRepository reads lesson demand.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListForScheduling returns all lessons ordered by id, including those excluded from
// the timetable.
func (r *LessonRepository) ListForScheduling(ctx context.Context) ([]models.Lesson, error) {
	const query = `SELECT id, name, track_id, grade_level, weekly_hours, splittable, include_in_schedule, requires_multiple_resources,
COALESCE(location_type_ids, '{}') AS location_type_ids, COALESCE(class_ids, '{}') AS class_ids, expected_size
FROM lessons ORDER BY id`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query); err != nil {
		return nil, fmt.Errorf("list lessons for scheduling: %w", err)
	}
	return lessons, nil
}
