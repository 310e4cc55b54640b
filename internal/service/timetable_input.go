package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

type schedulingTeacherReader interface {
	ListForScheduling(ctx context.Context) ([]models.Teacher, error)
}

type schedulingLessonReader interface {
	ListForScheduling(ctx context.Context) ([]models.Lesson, error)
}

type schedulingLocationReader interface {
	ListForScheduling(ctx context.Context) ([]models.Location, error)
}

type trackBranchReader interface {
	BranchMap(ctx context.Context) (map[string]*string, error)
}

type assignmentOverrideReader interface {
	List(ctx context.Context) ([]models.AssignmentOverride, error)
}

// TimetableRepositories groups the persistence collaborators of TimetableService.
type TimetableRepositories struct {
	Teachers  schedulingTeacherReader
	Lessons   schedulingLessonReader
	Locations schedulingLocationReader
	Tracks    trackBranchReader
	Overrides assignmentOverrideReader
	Saved     savedScheduleRepository
}

// loadInput reads every scheduling table concurrently and converts the rows into
// solver records.
func (s *TimetableService) loadInput(ctx context.Context) (*scheduler.RawInput, error) {
	var (
		teachers  []models.Teacher
		lessons   []models.Lesson
		locations []models.Location
		branches  map[string]*string
		overrides []models.AssignmentOverride
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer s.observeQuery("teachers", time.Now())
		teachers, err = s.repos.Teachers.ListForScheduling(gctx)
		return err
	})
	g.Go(func() (err error) {
		defer s.observeQuery("lessons", time.Now())
		lessons, err = s.repos.Lessons.ListForScheduling(gctx)
		return err
	})
	g.Go(func() (err error) {
		defer s.observeQuery("locations", time.Now())
		locations, err = s.repos.Locations.ListForScheduling(gctx)
		return err
	})
	g.Go(func() (err error) {
		defer s.observeQuery("tracks", time.Now())
		branches, err = s.repos.Tracks.BranchMap(gctx)
		return err
	})
	g.Go(func() (err error) {
		defer s.observeQuery("overrides", time.Now())
		overrides, err = s.repos.Overrides.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw := &scheduler.RawInput{
		Teachers:      make([]scheduler.TeacherRecord, 0, len(teachers)),
		Lessons:       make([]scheduler.LessonRecord, 0, len(lessons)),
		Locations:     make([]scheduler.LocationRecord, 0, len(locations)),
		TrackBranches: branches,
		Overrides:     make([]scheduler.AssignmentOverride, 0, len(overrides)),
	}
	for _, t := range teachers {
		raw.Teachers = append(raw.Teachers, s.toTeacherRecord(t))
	}
	for _, l := range lessons {
		raw.Lessons = append(raw.Lessons, scheduler.LessonRecord{
			ID:                        l.ID,
			Name:                      l.Name,
			TrackID:                   l.TrackID,
			GradeLevel:                l.GradeLevel,
			WeeklyHours:               l.WeeklyHours,
			Splittable:                l.Splittable,
			IncludeInSchedule:         l.IncludeInSchedule,
			RequiresMultipleResources: l.RequiresMultipleResources,
			SuitableLocationTypeIDs:   []string(l.LocationTypeIDs),
			ClassIDs:                  []string(l.ClassIDs),
			ExpectedSize:              l.ExpectedSize,
		})
	}
	for _, loc := range locations {
		raw.Locations = append(raw.Locations, scheduler.LocationRecord{
			ID:             loc.ID,
			Name:           loc.Name,
			LocationTypeID: loc.LocationTypeID,
			Capacity:       loc.Capacity,
			Bookable:       loc.Bookable,
		})
	}
	for _, o := range overrides {
		raw.Overrides = append(raw.Overrides, scheduler.AssignmentOverride{
			TeacherID: o.TeacherID,
			LessonID:  o.LessonID,
			Kind:      scheduler.OverrideKind(o.Kind),
		})
	}
	return raw, nil
}

// toTeacherRecord converts a teacher row. A teacher whose unavailability cannot be
// decoded is treated as inactive so the solver never books a blocked window.
func (s *TimetableService) toTeacherRecord(t models.Teacher) scheduler.TeacherRecord {
	record := scheduler.TeacherRecord{ID: t.ID, Name: t.FullName, IsActive: t.Active}
	if t.BranchID != nil {
		record.BranchID = *t.BranchID
	}
	slots, err := t.UnavailableSlots()
	if err != nil {
		s.logger.Warn("skipping teacher with unreadable unavailability", zap.String("teacher_id", t.ID), zap.Error(err))
		record.IsActive = false
		return record
	}
	for _, slot := range slots {
		record.Unavailability = append(record.Unavailability, scheduler.UnavailabilityRecord{DayOfWeek: slot.DayOfWeek, TimeRange: slot.TimeRange})
	}
	return record
}

func (s *TimetableService) observeQuery(label string, start time.Time) {
	s.metrics.ObserveDBQuery(label, time.Since(start))
}
