package models

import "github.com/lib/pq"

// Lesson is a weekly teaching demand of one track and grade.
type Lesson struct {
	ID                        string         `db:"id" json:"id"`
	Name                      string         `db:"name" json:"name"`
	TrackID                   string         `db:"track_id" json:"track_id"`
	GradeLevel                int            `db:"grade_level" json:"grade_level"`
	WeeklyHours               int            `db:"weekly_hours" json:"weekly_hours"`
	Splittable                bool           `db:"splittable" json:"splittable"`
	IncludeInSchedule         bool           `db:"include_in_schedule" json:"include_in_schedule"`
	RequiresMultipleResources bool           `db:"requires_multiple_resources" json:"requires_multiple_resources"`
	LocationTypeIDs           pq.StringArray `db:"location_type_ids" json:"location_type_ids"`
	ClassIDs                  pq.StringArray `db:"class_ids" json:"class_ids"`
	ExpectedSize              int            `db:"expected_size" json:"expected_size"`
}

// Location is a bookable room or facility.
type Location struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	LocationTypeID string `db:"location_type_id" json:"location_type_id"`
	Capacity       int    `db:"capacity" json:"capacity"`
	Bookable       bool   `db:"bookable" json:"bookable"`
}

// TrackBranch links a track to the branch whose teachers may teach it.
type TrackBranch struct {
	TrackID  string  `db:"id" json:"track_id"`
	BranchID *string `db:"branch_id" json:"branch_id,omitempty"`
}

// AssignmentOverride forces or forbids a teacher on a lesson.
type AssignmentOverride struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	LessonID  string `db:"lesson_id" json:"lesson_id"`
	Kind      string `db:"kind" json:"kind"`
}
