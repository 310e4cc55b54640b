package scheduler

// Candidates holds the eligible resources of one lesson, each list sorted by id.
// LocationRequired is set when the lesson declares suitable location types; other
// lessons may be placed without a location when none is free.
type Candidates struct {
	LessonID         string
	TeacherIDs       []string
	LocationIDs      []string
	LocationRequired bool
}

// ResolveCandidates computes eligible teachers and locations for every lesson.
//
// Required overrides fully replace branch matching for a lesson; excluded overrides
// only apply when no required override exists. Empty sets are warnings, never errors.
func ResolveCandidates(m *InputModel) (map[string]Candidates, []Warning) {
	out := make(map[string]Candidates, len(m.Lessons))
	var warnings []Warning
	for _, lesson := range m.Lessons {
		subject := "lesson " + lesson.ID
		teachers, teacherWarn := resolveTeachers(m, lesson)
		if teacherWarn != nil {
			warnings = append(warnings, *teacherWarn)
		}
		if len(teachers) == 0 {
			warnings = append(warnings, warnf(WarningInput, subject, "unschedulable: no eligible teacher"))
		}
		locations := resolveLocations(m, lesson)
		required := len(lesson.SuitableLocationTypeIDs) > 0
		if len(locations) == 0 {
			if required {
				warnings = append(warnings, warnf(WarningInput, subject, "unschedulable: no location of a suitable type"))
			} else if len(m.LocationIDs) > 0 {
				warnings = append(warnings, warnf(WarningInput, subject, "no location fits %d attendees, placing without one", lesson.ExpectedSize))
			}
		}
		out[lesson.ID] = Candidates{
			LessonID:         lesson.ID,
			TeacherIDs:       teachers,
			LocationIDs:      locations,
			LocationRequired: required,
		}
	}
	return out, warnings
}

func resolveTeachers(m *InputModel, lesson *LessonDemand) ([]string, *Warning) {
	if required, ok := m.Required[lesson.ID]; ok && len(required) > 0 {
		return append([]string(nil), required...), nil
	}
	branch, linked := m.TrackBranch[lesson.TrackID]
	if !linked || branch == nil || *branch == "" {
		w := warnf(WarningInput, "lesson "+lesson.ID, "track %q has no branch link", lesson.TrackID)
		return nil, &w
	}
	excluded := m.Excluded[lesson.ID]
	var out []string
	for _, id := range m.TeacherIDs {
		teacher := m.Teachers[id]
		if teacher.BranchID != *branch {
			continue
		}
		if _, skip := excluded[id]; skip {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func resolveLocations(m *InputModel, lesson *LessonDemand) []string {
	var out []string
	if len(lesson.SuitableLocationTypeIDs) > 0 {
		suitable := make(map[string]struct{}, len(lesson.SuitableLocationTypeIDs))
		for _, id := range lesson.SuitableLocationTypeIDs {
			suitable[id] = struct{}{}
		}
		for _, id := range m.LocationIDs {
			if _, ok := suitable[m.Locations[id].LocationTypeID]; ok {
				out = append(out, id)
			}
		}
		return out
	}
	for _, id := range m.LocationIDs {
		if m.Locations[id].Capacity >= lesson.ExpectedSize {
			out = append(out, id)
		}
	}
	return out
}
