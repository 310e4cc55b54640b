package scheduler

import (
	"fmt"
	"sort"
)

// TeacherProfile is an active teacher eligible for the resolution pool.
type TeacherProfile struct {
	ID          string
	Name        string
	BranchID    string
	Active      bool
	Unavailable map[TimeSlot]struct{}
}

// IsUnavailable reports whether the teacher blocked the slot.
func (t *TeacherProfile) IsUnavailable(slot TimeSlot) bool {
	_, blocked := t.Unavailable[slot]
	return blocked
}

// LessonDemand is one lesson with its weekly-hour quota.
type LessonDemand struct {
	ID                        string
	Name                      string
	TrackID                   string
	GradeLevel                int
	WeeklyHours               int
	Splittable                bool
	IncludeInSchedule         bool
	RequiresMultipleResources bool
	SuitableLocationTypeIDs   []string
	ClassIDs                  []string
	ExpectedSize              int
}

// LocationResource is a bookable room.
type LocationResource struct {
	ID             string
	Name           string
	LocationTypeID string
	Capacity       int
	Bookable       bool
}

// OverrideKind distinguishes required and excluded teacher overrides.
type OverrideKind string

const (
	OverrideRequired OverrideKind = "required"
	OverrideExcluded OverrideKind = "excluded"
)

// AssignmentOverride is an explicit exception to branch based eligibility.
type AssignmentOverride struct {
	TeacherID string       `json:"teacherId"`
	LessonID  string       `json:"lessonId"`
	Kind      OverrideKind `json:"kind"`
}

// ScheduledEntry is one placed lesson-hour. Key is teacherId-day-hourIndex of the primary teacher.
type ScheduledEntry struct {
	Key         string   `json:"key"`
	LessonID    string   `json:"lessonId"`
	TeacherIDs  []string `json:"teacherIds"`
	LocationIDs []string `json:"locationIds"`
	ClassIDs    []string `json:"classIds,omitempty"`
	GradeLevel  int      `json:"gradeLevel"`
}

// PrimaryTeacher is the teacher the entry key is built from.
func (e ScheduledEntry) PrimaryTeacher() string {
	if len(e.TeacherIDs) == 0 {
		return ""
	}
	return e.TeacherIDs[0]
}

func (e ScheduledEntry) clone() ScheduledEntry {
	e.TeacherIDs = cloneIDs(e.TeacherIDs)
	e.LocationIDs = cloneIDs(e.LocationIDs)
	e.ClassIDs = cloneIDs(e.ClassIDs)
	return e
}

// Schedule maps canonical keys to placed entries.
type Schedule map[string]ScheduledEntry

// Len returns the number of placed lesson-hours.
func (s Schedule) Len() int { return len(s) }

// Clone deep-copies the schedule.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for key, entry := range s {
		out[key] = entry.clone()
	}
	return out
}

// Keys returns keys ordered by teacher, day and hour.
func (s Schedule) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

// HoursByLesson counts placed hours per lesson id.
func (s Schedule) HoursByLesson() map[string]int {
	out := make(map[string]int)
	for _, entry := range s {
		out[entry.LessonID]++
	}
	return out
}

// UnassignedRemainder records the hours of a lesson the solver could not place.
type UnassignedRemainder struct {
	LessonID       string `json:"lessonId"`
	LessonName     string `json:"lessonName"`
	RemainingHours int    `json:"remainingHours"`
}

// WarningKind classifies recoverable problems.
type WarningKind string

const (
	WarningInput    WarningKind = "input"
	WarningCapacity WarningKind = "capacity"
	WarningStore    WarningKind = "store"
)

// Warning is a recoverable data-quality problem reported in the log trail.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("warning[%s] %s: %s", w.Kind, w.Subject, w.Message)
}

func warnf(kind WarningKind, subject, format string, args ...any) Warning {
	return Warning{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
