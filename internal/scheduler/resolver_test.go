package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFiltersRecords(t *testing.T) {
	hidden := lesson("hidden", "science", 2, true)
	hidden.IncludeInSchedule = false
	empty := lesson("empty", "science", 0, true)
	staff := room("staff", "office", 5)
	staff.Bookable = false

	m := mustModel(t, &RawInput{
		Teachers: []TeacherRecord{
			teacher("t1", "sci"),
			{ID: "t2", BranchID: "sci", IsActive: false},
			teacher("t1", "hum"),
			{ID: "t3", BranchID: "sci", IsActive: true, Unavailability: []UnavailabilityRecord{
				{DayOfWeek: "MONDAY", TimeRange: "1-3"},
				{DayOfWeek: "Sunday", TimeRange: "1"},
				{DayOfWeek: "Friday", TimeRange: "11"},
			}},
		},
		Lessons:   []LessonRecord{lesson("math", "science", 4, true), hidden, empty},
		Locations: []LocationRecord{room("r1", "class", 30), staff},
		Overrides: []AssignmentOverride{{TeacherID: "t2", LessonID: "math", Kind: OverrideRequired}},
	})

	assert.Equal(t, []string{"t1", "t3"}, m.TeacherIDs)
	assert.Equal(t, "sci", m.Teachers["t1"].BranchID)
	require.Len(t, m.Lessons, 1)
	assert.Equal(t, "math", m.Lessons[0].ID)
	_, ok := m.Lesson("hidden")
	assert.False(t, ok)
	assert.Equal(t, []string{"r1"}, m.LocationIDs)
	assert.Empty(t, m.Required)

	t3 := m.Teachers["t3"]
	assert.Len(t, t3.Unavailable, 3)
	assert.True(t, t3.IsUnavailable(TimeSlot{Day: Monday, Hour: 2}))
	assert.False(t, t3.IsUnavailable(TimeSlot{Day: Monday, Hour: 4}))

	// duplicate teacher, empty lesson, two bad windows, override on inactive teacher
	assert.Len(t, m.Warnings, 5)
}

func TestNormalizeFatal(t *testing.T) {
	_, err := Normalize(nil, &RawInput{})
	assert.ErrorIs(t, err, ErrEmptyGrid)
	_, err = Normalize(DefaultGrid(), nil)
	assert.ErrorIs(t, err, ErrCorruptInput)
}

func TestResolveCandidatesTeachers(t *testing.T) {
	m := mustModel(t, &RawInput{
		Teachers: []TeacherRecord{teacher("t1", "sci"), teacher("t2", "sci"), teacher("t3", "hum"), teacher("t4", "sci")},
		Lessons: []LessonRecord{
			lesson("branch", "science", 2, true),
			lesson("required", "science", 2, true),
			lesson("orphan", "unknown", 2, true),
			lesson("nullbranch", "art", 2, true),
		},
		TrackBranches: map[string]*string{"science": strPtr("sci"), "art": nil},
		Overrides: []AssignmentOverride{
			{TeacherID: "t2", LessonID: "branch", Kind: OverrideExcluded},
			{TeacherID: "t3", LessonID: "required", Kind: OverrideRequired},
			{TeacherID: "t1", LessonID: "required", Kind: OverrideExcluded},
		},
	})

	got, warnings := ResolveCandidates(m)
	assert.Equal(t, []string{"t1", "t4"}, got["branch"].TeacherIDs)
	assert.Equal(t, []string{"t3"}, got["required"].TeacherIDs)
	assert.Empty(t, got["orphan"].TeacherIDs)
	assert.Empty(t, got["nullbranch"].TeacherIDs)

	var unschedulable int
	for _, w := range warnings {
		if w.Message == "unschedulable: no eligible teacher" {
			unschedulable++
		}
	}
	assert.Equal(t, 2, unschedulable)
}

func TestResolveCandidatesLocations(t *testing.T) {
	lab := lesson("lab", "science", 2, true)
	lab.SuitableLocationTypeIDs = []string{"lab", "workshop"}
	big := lesson("big", "science", 2, true)
	big.ExpectedSize = 40
	nowhere := lesson("nowhere", "science", 2, true)
	nowhere.SuitableLocationTypeIDs = []string{"pool"}

	m := mustModel(t, &RawInput{
		Teachers:      []TeacherRecord{teacher("t1", "sci")},
		Lessons:       []LessonRecord{lab, big, nowhere, lesson("plain", "science", 2, true)},
		Locations:     []LocationRecord{room("r-small", "class", 20), room("r-hall", "hall", 120), room("lab-1", "lab", 24), room("ws-1", "workshop", 16)},
		TrackBranches: map[string]*string{"science": strPtr("sci")},
	})

	got, _ := ResolveCandidates(m)
	assert.Equal(t, []string{"lab-1", "ws-1"}, got["lab"].LocationIDs)
	assert.True(t, got["lab"].LocationRequired)
	assert.Equal(t, []string{"r-hall"}, got["big"].LocationIDs)
	assert.False(t, got["big"].LocationRequired)
	assert.Empty(t, got["nowhere"].LocationIDs)
	assert.True(t, got["nowhere"].LocationRequired)
	assert.Len(t, got["plain"].LocationIDs, 4)
}
