package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func testContext(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}

func teacher(id, branch string) TeacherRecord {
	return TeacherRecord{ID: id, Name: "Teacher " + id, BranchID: branch, IsActive: true}
}

func lesson(id, track string, hours int, splittable bool) LessonRecord {
	return LessonRecord{
		ID:                id,
		Name:              "Lesson " + id,
		TrackID:           track,
		GradeLevel:        9,
		WeeklyHours:       hours,
		Splittable:        splittable,
		IncludeInSchedule: true,
		ClassIDs:          []string{"class-" + track},
	}
}

func room(id, typ string, capacity int) LocationRecord {
	return LocationRecord{ID: id, Name: "Room " + id, LocationTypeID: typ, Capacity: capacity, Bookable: true}
}

func mustModel(t *testing.T, raw *RawInput) *InputModel {
	t.Helper()
	m, err := Normalize(DefaultGrid(), raw)
	require.NoError(t, err)
	return m
}

// schoolInput is a mid-sized week: two branches, five teachers, mixed lessons.
func schoolInput() *RawInput {
	math := lesson("math-9", "science", 6, true)
	physics := lesson("physics-9", "science", 4, false)
	physics.SuitableLocationTypeIDs = []string{"lab"}
	chem := lesson("chem-9", "science", 3, true)
	chem.SuitableLocationTypeIDs = []string{"lab"}
	lit := lesson("lit-9", "humanities", 5, true)
	history := lesson("history-9", "humanities", 3, false)
	project := lesson("project-9", "humanities", 2, false)
	project.RequiresMultipleResources = true
	project.ClassIDs = []string{"class-humanities", "class-science"}

	return &RawInput{
		Teachers: []TeacherRecord{
			teacher("t-ada", "sci"),
			teacher("t-bob", "sci"),
			teacher("t-cem", "hum"),
			teacher("t-dia", "hum"),
			{ID: "t-eve", Name: "Eve", BranchID: "hum", IsActive: true, Unavailability: []UnavailabilityRecord{{DayOfWeek: "FRIDAY", TimeRange: "1-10"}}},
		},
		Lessons: []LessonRecord{math, physics, chem, lit, history, project},
		Locations: []LocationRecord{
			room("r-101", "class", 30),
			room("r-102", "class", 30),
			room("r-103", "class", 30),
			room("lab-1", "lab", 24),
		},
		TrackBranches: map[string]*string{
			"science":    strPtr("sci"),
			"humanities": strPtr("hum"),
		},
	}
}

type bookingKey struct {
	id   string
	slot TimeSlot
}

// assertNoDoubleBooking fails when any teacher, location or class holds a slot twice.
func assertNoDoubleBooking(t *testing.T, s Schedule) {
	t.Helper()
	seen := map[string]map[bookingKey]string{"teacher": {}, "location": {}, "class": {}}
	for key, entry := range s {
		parsed, err := ParseKey(key, "")
		require.NoError(t, err)
		require.Equal(t, parsed.TeacherID, entry.PrimaryTeacher(), "key %s must carry its primary teacher", key)
		check := func(kind string, ids []string) {
			for _, id := range ids {
				bk := bookingKey{id: id, slot: parsed.Slot}
				if other, dup := seen[kind][bk]; dup {
					t.Fatalf("%s %s double booked at %s by %s and %s", kind, id, parsed.Slot, other, key)
				}
				seen[kind][bk] = key
			}
		}
		check("teacher", entry.TeacherIDs)
		check("location", entry.LocationIDs)
		check("class", entry.ClassIDs)
	}
}
