package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

var savedScheduleRowColumns = []string{"id", "name", "description", "fitness_score", "workload_variance", "total_gaps", "schedule", "unassigned", "logs", "created_at", "updated_at"}

func TestSavedScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saved_schedules")).
		WithArgs(sqlmock.AnyArg(), nil, nil, 87.5, 0.25, 2, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.SavedSchedule{
		FitnessScore:     87.5,
		WorkloadVariance: 0.25,
		TotalGaps:        2,
		Schedule:         types.JSONText(`[["t1-0-0",{"key":"t1-0-0","lessonId":"math","teacherIds":["t1"],"locationIds":[],"gradeLevel":9}]]`),
	}
	require.NoError(t, repo.Create(context.Background(), payload))
	assert.NotEmpty(t, payload.ID)
	assert.Equal(t, types.JSONText(`[]`), payload.Unassigned)
	assert.Equal(t, types.JSONText(`[]`), payload.Logs)
	assert.False(t, payload.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(savedScheduleRowColumns).
		AddRow("sch-1", "Autumn", nil, 90.0, 0.5, 1, []byte(`[]`), []byte(`[]`), []byte(`["placed"]`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM saved_schedules WHERE id = $1")).
		WithArgs("sch-1").
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), "sch-1")
	require.NoError(t, err)
	require.NotNil(t, found.Name)
	assert.Equal(t, "Autumn", *found.Name)
	assert.Nil(t, found.Description)
	assert.Equal(t, types.JSONText(`["placed"]`), found.Logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM saved_schedules WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(savedScheduleRowColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "fitness_score", "workload_variance", "total_gaps", "created_at", "updated_at"}).
		AddRow("sch-1", nil, nil, 90.0, 0.5, 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, fitness_score, workload_variance, total_gaps, created_at, updated_at FROM saved_schedules WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM saved_schedules WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SavedScheduleFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryListSearchAndSort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND (LOWER(COALESCE(name, '')) LIKE $1 OR LOWER(COALESCE(description, '')) LIKE $1) ORDER BY total_gaps ASC LIMIT 5 OFFSET 5")).
		WithArgs("%autumn%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM saved_schedules")).
		WithArgs("%autumn%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.SavedScheduleFilter{Search: "Autumn", Page: 2, PageSize: 5, SortBy: "total_gaps", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryUpdateMetadata(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	name := "Spring"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE saved_schedules SET name = $1, description = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(name, nil, sqlmock.AnyArg(), "sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE saved_schedules SET name = $1")).
		WithArgs(name, nil, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateMetadata(context.Background(), "sch-1", &name, nil))
	assert.ErrorIs(t, repo.UpdateMetadata(context.Background(), "missing", &name, nil), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryUpdateOptimized(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE saved_schedules SET schedule = ")).
		WithArgs(sqlmock.AnyArg(), 95.0, 0.0, 0, sqlmock.AnyArg(), sqlmock.AnyArg(), "sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateOptimized(context.Background(), &models.SavedSchedule{
		ID:           "sch-1",
		FitnessScore: 95,
		Schedule:     types.JSONText(`[]`),
		Logs:         types.JSONText(`[]`),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM saved_schedules WHERE id = $1")).
		WithArgs("sch-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM saved_schedules WHERE id = $1")).
		WithArgs("sch-2").
		WillReturnResult(sqlmock.NewResult(1, 0))

	require.NoError(t, repo.Delete(context.Background(), "sch-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "sch-2"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
