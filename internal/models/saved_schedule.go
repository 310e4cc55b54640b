package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SavedSchedule is a persisted timetable snapshot. Only name and description change
// after creation, apart from optimizer rewrites of the schedule body.
type SavedSchedule struct {
	ID               string         `db:"id" json:"id"`
	Name             *string        `db:"name" json:"name,omitempty"`
	Description      *string        `db:"description" json:"description,omitempty"`
	FitnessScore     float64        `db:"fitness_score" json:"fitness_score"`
	WorkloadVariance float64        `db:"workload_variance" json:"workload_variance"`
	TotalGaps        int            `db:"total_gaps" json:"total_gaps"`
	Schedule         types.JSONText `db:"schedule" json:"schedule"`
	Unassigned       types.JSONText `db:"unassigned" json:"unassigned"`
	Logs             types.JSONText `db:"logs" json:"logs"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// SavedScheduleSummary is the list projection of a saved schedule.
type SavedScheduleSummary struct {
	ID               string    `db:"id" json:"id"`
	Name             *string   `db:"name" json:"name,omitempty"`
	Description      *string   `db:"description" json:"description,omitempty"`
	FitnessScore     float64   `db:"fitness_score" json:"fitness_score"`
	WorkloadVariance float64   `db:"workload_variance" json:"workload_variance"`
	TotalGaps        int       `db:"total_gaps" json:"total_gaps"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SavedScheduleFilter pages through saved schedules.
type SavedScheduleFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UnassignedLesson is a lesson with hours the solver could not place.
type UnassignedLesson struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WeeklyHours int    `json:"weeklyHours"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
