package dto

import (
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// WeightsRequest overrides the solver cost weights for one run.
type WeightsRequest struct {
	Variance   float64 `json:"variance" validate:"min=0"`
	Gaps       float64 `json:"gaps" validate:"min=0"`
	Unassigned float64 `json:"unassigned" validate:"min=0"`
	Spread     float64 `json:"spread" validate:"min=0"`
}

// GenerateTimetableRequest starts a solver run over the current school data.
type GenerateTimetableRequest struct {
	Name          *string         `json:"name" validate:"omitempty,max=120"`
	Description   *string         `json:"description" validate:"omitempty,max=500"`
	Weights       *WeightsRequest `json:"weights" validate:"omitempty"`
	MaxBlockHours int             `json:"maxBlockHours" validate:"omitempty,min=1,max=10"`
	DryRun        bool            `json:"dryRun"`
}

// UpdateTimetableMetadataRequest edits the descriptive fields of a saved timetable.
type UpdateTimetableMetadataRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// TimetableListQuery pages through saved timetables.
type TimetableListQuery struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TimetableResponse is a generated or stored timetable.
type TimetableResponse struct {
	ID                string                    `json:"id,omitempty"`
	Name              *string                   `json:"name,omitempty"`
	Description       *string                   `json:"description,omitempty"`
	FitnessScore      float64                   `json:"fitnessScore"`
	WorkloadVariance  float64                   `json:"workloadVariance"`
	TotalGaps         int                       `json:"totalGaps"`
	Schedule          []scheduler.Row           `json:"schedule"`
	UnassignedLessons []models.UnassignedLesson `json:"unassignedLessons"`
	Logs              []string                  `json:"logs"`
	Warnings          []string                  `json:"warnings,omitempty"`
	Cancelled         bool                      `json:"cancelled,omitempty"`
	Persisted         bool                      `json:"persisted"`
	CreatedAt         *time.Time                `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time                `json:"updatedAt,omitempty"`
}

// OptimizeTimetableResponse reports the outcome of a gap optimization.
type OptimizeTimetableResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	NewGaps *int               `json:"newGaps,omitempty"`
	Changes []scheduler.Change `json:"changes,omitempty"`
}
