package models

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
)

// TeacherUnavailableSlot describes a blocked teaching window.
type TeacherUnavailableSlot struct {
	DayOfWeek string `json:"day_of_week"`
	TimeRange string `json:"time_range"`
}

// Teacher is an instructor as read for timetable generation.
type Teacher struct {
	ID          string         `db:"id" json:"id"`
	FullName    string         `db:"full_name" json:"full_name"`
	BranchID    *string        `db:"branch_id" json:"branch_id,omitempty"`
	Active      bool           `db:"active" json:"active"`
	Unavailable types.JSONText `db:"unavailable" json:"unavailable"`
}

// UnavailableSlots decodes the stored unavailability windows. An empty column yields
// no windows.
func (t Teacher) UnavailableSlots() ([]TeacherUnavailableSlot, error) {
	if len(t.Unavailable) == 0 {
		return nil, nil
	}
	var slots []TeacherUnavailableSlot
	if err := json.Unmarshal(t.Unavailable, &slots); err != nil {
		return nil, fmt.Errorf("decode unavailability of teacher %s: %w", t.ID, err)
	}
	return slots, nil
}
