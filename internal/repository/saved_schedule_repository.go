package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-api/internal/models"
)

const savedScheduleColumns = `id, name, description, fitness_score, workload_variance, total_gaps, schedule, unassigned, logs, created_at, updated_at`

// SavedScheduleRepository persists generated timetables.
type SavedScheduleRepository struct {
	db *sqlx.DB
}

// NewSavedScheduleRepository constructs repository.
func NewSavedScheduleRepository(db *sqlx.DB) *SavedScheduleRepository {
	return &SavedScheduleRepository{db: db}
}

// Create inserts a saved schedule, assigning an id and timestamps when missing.
func (r *SavedScheduleRepository) Create(ctx context.Context, schedule *models.SavedSchedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if len(schedule.Schedule) == 0 {
		schedule.Schedule = types.JSONText(`[]`)
	}
	if len(schedule.Unassigned) == 0 {
		schedule.Unassigned = types.JSONText(`[]`)
	}
	if len(schedule.Logs) == 0 {
		schedule.Logs = types.JSONText(`[]`)
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `
INSERT INTO saved_schedules (id, name, description, fitness_score, workload_variance, total_gaps, schedule, unassigned, logs, created_at, updated_at)
VALUES (:id, :name, :description, :fitness_score, :workload_variance, :total_gaps, :schedule, :unassigned, :logs, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("insert saved schedule: %w", err)
	}
	return nil
}

// FindByID loads a saved schedule by its identifier.
func (r *SavedScheduleRepository) FindByID(ctx context.Context, id string) (*models.SavedSchedule, error) {
	query := `SELECT ` + savedScheduleColumns + ` FROM saved_schedules WHERE id = $1`
	var schedule models.SavedSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// List returns schedule summaries matching the filter along with the total count.
func (r *SavedScheduleRepository) List(ctx context.Context, filter models.SavedScheduleFilter) ([]models.SavedScheduleSummary, int, error) {
	base := "FROM saved_schedules WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(COALESCE(name, '')) LIKE $%d OR LOWER(COALESCE(description, '')) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	allowedSorts := map[string]string{
		"name":          "name",
		"fitness_score": "fitness_score",
		"total_gaps":    "total_gaps",
		"created_at":    "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, description, fitness_score, workload_variance, total_gaps, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, column, order, size, offset)
	var summaries []models.SavedScheduleSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list saved schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count saved schedules: %w", err)
	}
	return summaries, total, nil
}

// UpdateMetadata replaces name and description.
func (r *SavedScheduleRepository) UpdateMetadata(ctx context.Context, id string, name, description *string) error {
	const query = `UPDATE saved_schedules SET name = $1, description = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, name, description, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update saved schedule metadata: %w", err)
	}
	return requireAffected(result, "saved schedule metadata")
}

// UpdateOptimized stores a rewritten schedule body with its recomputed metrics and
// log trail.
func (r *SavedScheduleRepository) UpdateOptimized(ctx context.Context, schedule *models.SavedSchedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE saved_schedules SET schedule = :schedule, fitness_score = :fitness_score, workload_variance = :workload_variance,
total_gaps = :total_gaps, logs = :logs, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, schedule)
	if err != nil {
		return fmt.Errorf("update optimized schedule: %w", err)
	}
	return requireAffected(result, "optimized schedule")
}

// Delete removes a saved schedule.
func (r *SavedScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM saved_schedules WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete saved schedule: %w", err)
	}
	return requireAffected(result, "deleted schedule")
}

func requireAffected(result sql.Result, label string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", label, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
