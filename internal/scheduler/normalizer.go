package scheduler

import (
	"fmt"
	"sort"
)

// UnavailabilityRecord is a blocked window as stored on a teacher: a day name and
// an hour or hour range such as "1-3".
type UnavailabilityRecord struct {
	DayOfWeek string `json:"dayOfWeek"`
	TimeRange string `json:"timeRange"`
}

// TeacherRecord is a teacher as read from persistence.
type TeacherRecord struct {
	ID             string
	Name           string
	BranchID       string
	IsActive       bool
	Unavailability []UnavailabilityRecord
}

// LessonRecord is a lesson as read from persistence.
type LessonRecord struct {
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

// LocationRecord is a location as read from persistence.
type LocationRecord struct {
	ID             string
	Name           string
	LocationTypeID string
	Capacity       int
	Bookable       bool
}

// RawInput bundles everything the normalizer consumes. TrackBranches maps a track
// id to its branch id; a nil value means the track has no branch.
type RawInput struct {
	Teachers      []TeacherRecord
	Lessons       []LessonRecord
	Locations     []LocationRecord
	TrackBranches map[string]*string
	Overrides     []AssignmentOverride
}

// InputModel is the cross-referenced, validated input of one run. It is rebuilt per
// run and never persisted.
type InputModel struct {
	Grid        *Grid
	Teachers    map[string]*TeacherProfile
	TeacherIDs  []string
	Lessons     []*LessonDemand
	Locations   map[string]*LocationResource
	LocationIDs []string
	TrackBranch map[string]*string
	Required    map[string][]string
	Excluded    map[string]map[string]struct{}
	Warnings    []Warning

	lessonIndex map[string]*LessonDemand
}

// Lesson looks up an included lesson by id.
func (m *InputModel) Lesson(id string) (*LessonDemand, bool) {
	lesson, ok := m.lessonIndex[id]
	return lesson, ok
}

// Normalize validates raw records against the grid and cross-references them.
// Data-quality problems become warnings; only a missing grid or input is fatal.
func Normalize(grid *Grid, raw *RawInput) (*InputModel, error) {
	if grid == nil || grid.Size() == 0 {
		return nil, ErrEmptyGrid
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: no input", ErrCorruptInput)
	}

	m := &InputModel{
		Grid:        grid,
		Teachers:    make(map[string]*TeacherProfile),
		Locations:   make(map[string]*LocationResource),
		TrackBranch: make(map[string]*string, len(raw.TrackBranches)),
		Required:    make(map[string][]string),
		Excluded:    make(map[string]map[string]struct{}),
		lessonIndex: make(map[string]*LessonDemand),
	}
	for track, branch := range raw.TrackBranches {
		m.TrackBranch[track] = branch
	}

	m.normalizeTeachers(raw.Teachers)
	m.normalizeLessons(raw.Lessons)
	m.normalizeLocations(raw.Locations)
	m.normalizeOverrides(raw.Overrides)
	return m, nil
}

func (m *InputModel) normalizeTeachers(records []TeacherRecord) {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			m.warn(WarningInput, "teacher", "skipped record without id")
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			m.warn(WarningInput, "teacher "+rec.ID, "duplicate record ignored")
			continue
		}
		seen[rec.ID] = struct{}{}
		if !rec.IsActive {
			continue
		}
		profile := &TeacherProfile{
			ID:          rec.ID,
			Name:        rec.Name,
			BranchID:    rec.BranchID,
			Active:      true,
			Unavailable: make(map[TimeSlot]struct{}),
		}
		for _, window := range rec.Unavailability {
			day, ok := ParseDay(window.DayOfWeek)
			hours := ExpandTimeRange(window.TimeRange)
			if !ok || len(hours) == 0 {
				m.warn(WarningInput, "teacher "+rec.ID, "ignored unavailability %q %q", window.DayOfWeek, window.TimeRange)
				continue
			}
			for _, hour := range hours {
				slot := TimeSlot{Day: day, Hour: hour}
				if !m.Grid.Contains(slot) {
					m.warn(WarningInput, "teacher "+rec.ID, "unavailability %s is outside the grid", slot)
					continue
				}
				profile.Unavailable[slot] = struct{}{}
			}
		}
		m.Teachers[rec.ID] = profile
		m.TeacherIDs = append(m.TeacherIDs, rec.ID)
	}
	sort.Strings(m.TeacherIDs)
}

func (m *InputModel) normalizeLessons(records []LessonRecord) {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			m.warn(WarningInput, "lesson", "skipped record without id")
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			m.warn(WarningInput, "lesson "+rec.ID, "duplicate record ignored")
			continue
		}
		seen[rec.ID] = struct{}{}
		if !rec.IncludeInSchedule {
			continue
		}
		if rec.WeeklyHours <= 0 {
			m.warn(WarningInput, "lesson "+rec.ID, "weekly hours %d, nothing to schedule", rec.WeeklyHours)
			continue
		}
		lesson := &LessonDemand{
			ID:                        rec.ID,
			Name:                      rec.Name,
			TrackID:                   rec.TrackID,
			GradeLevel:                rec.GradeLevel,
			WeeklyHours:               rec.WeeklyHours,
			Splittable:                rec.Splittable,
			IncludeInSchedule:         true,
			RequiresMultipleResources: rec.RequiresMultipleResources,
			SuitableLocationTypeIDs:   dedupeSorted(rec.SuitableLocationTypeIDs),
			ClassIDs:                  dedupeSorted(rec.ClassIDs),
			ExpectedSize:              rec.ExpectedSize,
		}
		m.lessonIndex[rec.ID] = lesson
		m.Lessons = append(m.Lessons, lesson)
	}
	sort.Slice(m.Lessons, func(i, j int) bool { return m.Lessons[i].ID < m.Lessons[j].ID })
}

func (m *InputModel) normalizeLocations(records []LocationRecord) {
	for _, rec := range records {
		if rec.ID == "" || !rec.Bookable {
			continue
		}
		if _, dup := m.Locations[rec.ID]; dup {
			m.warn(WarningInput, "location "+rec.ID, "duplicate record ignored")
			continue
		}
		m.Locations[rec.ID] = &LocationResource{
			ID:             rec.ID,
			Name:           rec.Name,
			LocationTypeID: rec.LocationTypeID,
			Capacity:       rec.Capacity,
			Bookable:       true,
		}
		m.LocationIDs = append(m.LocationIDs, rec.ID)
	}
	sort.Strings(m.LocationIDs)
}

func (m *InputModel) normalizeOverrides(overrides []AssignmentOverride) {
	required := make(map[string]map[string]struct{})
	for _, o := range overrides {
		subject := fmt.Sprintf("override %s/%s", o.TeacherID, o.LessonID)
		if _, ok := m.lessonIndex[o.LessonID]; !ok {
			m.warn(WarningInput, subject, "unknown or excluded lesson, ignored")
			continue
		}
		if _, ok := m.Teachers[o.TeacherID]; !ok {
			m.warn(WarningInput, subject, "unknown or inactive teacher, ignored")
			continue
		}
		switch o.Kind {
		case OverrideRequired:
			if required[o.LessonID] == nil {
				required[o.LessonID] = make(map[string]struct{})
			}
			required[o.LessonID][o.TeacherID] = struct{}{}
		case OverrideExcluded:
			if m.Excluded[o.LessonID] == nil {
				m.Excluded[o.LessonID] = make(map[string]struct{})
			}
			m.Excluded[o.LessonID][o.TeacherID] = struct{}{}
		default:
			m.warn(WarningInput, subject, "unknown override kind %q", o.Kind)
		}
	}
	for lessonID, set := range required {
		m.Required[lessonID] = sortedIDs(set)
	}
}

func (m *InputModel) warn(kind WarningKind, subject, format string, args ...any) {
	m.Warnings = append(m.Warnings, warnf(kind, subject, format, args...))
}

func dedupeSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return sortedIDs(set)
}
