package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TeacherRepository reads teachers for timetable generation.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListForScheduling returns every teacher, active or not, ordered by id. Inactive
// teachers are kept so overrides naming them can be reported.
func (r *TeacherRepository) ListForScheduling(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, full_name, branch_id, active, COALESCE(unavailable, '[]'::jsonb) AS unavailable FROM teachers ORDER BY id`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers for scheduling: %w", err)
	}
	return teachers, nil
}
