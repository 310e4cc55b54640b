package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTeacherRepositoryListForScheduling(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "branch_id", "active", "unavailable"}).
		AddRow("t1", "Ada", "sci", true, []byte(`[{"day_of_week":"MONDAY","time_range":"1-3"}]`)).
		AddRow("t2", "Ben", nil, false, []byte(`[]`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, branch_id, active, COALESCE(unavailable, '[]'::jsonb) AS unavailable FROM teachers ORDER BY id")).
		WillReturnRows(rows)

	teachers, err := repo.ListForScheduling(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	require.NotNil(t, teachers[0].BranchID)
	assert.Equal(t, "sci", *teachers[0].BranchID)
	assert.Nil(t, teachers[1].BranchID)

	slots, err := teachers[0].UnavailableSlots()
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "1-3", slots[0].TimeRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListForSchedulingError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery("FROM teachers").WillReturnError(errors.New("boom"))

	_, err := repo.ListForScheduling(context.Background())
	assert.ErrorContains(t, err, "list teachers for scheduling")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListForScheduling(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "track_id", "grade_level", "weekly_hours", "splittable", "include_in_schedule",
		"requires_multiple_resources", "location_type_ids", "class_ids", "expected_size"}).
		AddRow("chem-9", "Chemistry", "science", 9, 3, false, true, false, "{lab,workshop}", "{9A}", 24)
	mock.ExpectQuery("SELECT id, name, track_id, grade_level, weekly_hours").WillReturnRows(rows)

	lessons, err := repo.ListForScheduling(context.Background())
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, []string{"lab", "workshop"}, []string(lessons[0].LocationTypeIDs))
	assert.Equal(t, []string{"9A"}, []string(lessons[0].ClassIDs))
	assert.Equal(t, 24, lessons[0].ExpectedSize)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepositoryListForScheduling(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLocationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "location_type_id", "capacity", "bookable"}).
		AddRow("lab-1", "Lab", "lab", 24, true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, location_type_id, capacity, bookable FROM locations ORDER BY id")).
		WillReturnRows(rows)

	locations, err := repo.ListForScheduling(context.Background())
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.True(t, locations[0].Bookable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackRepositoryBranchMap(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTrackRepository(db)

	rows := sqlmock.NewRows([]string{"id", "branch_id"}).
		AddRow("science", "sci").
		AddRow("art", nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, branch_id FROM tracks")).WillReturnRows(rows)

	branches, err := repo.BranchMap(context.Background())
	require.NoError(t, err)
	require.Contains(t, branches, "art")
	assert.Nil(t, branches["art"])
	require.NotNil(t, branches["science"])
	assert.Equal(t, "sci", *branches["science"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentOverrideRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentOverrideRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id", "lesson_id", "kind"}).
		AddRow("t1", "math", "required")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id, lesson_id, kind FROM assignment_overrides ORDER BY lesson_id, teacher_id")).
		WillReturnRows(rows)

	overrides, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, "required", overrides[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
