package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(key, lessonID string, teachers []string, locations ...string) ScheduledEntry {
	if locations == nil {
		locations = []string{}
	}
	return ScheduledEntry{Key: key, LessonID: lessonID, TeacherIDs: teachers, LocationIDs: locations, GradeLevel: 9}
}

func gapModel(t *testing.T, teachers []TeacherRecord, lessons ...LessonRecord) *InputModel {
	t.Helper()
	return mustModel(t, &RawInput{
		Teachers:      teachers,
		Lessons:       lessons,
		TrackBranches: map[string]*string{"science": strPtr("sci")},
	})
}

func TestOptimizeClosesSingleGap(t *testing.T) {
	m := gapModel(t, []TeacherRecord{teacher("t1", "sci")}, lesson("a", "science", 1, true), lesson("b", "science", 1, true))
	in := Schedule{
		"t1-0-0": entry("t1-0-0", "a", []string{"t1"}),
		"t1-0-2": entry("t1-0-2", "b", []string{"t1"}),
	}

	res, err := NewOptimizer(OptimizerOptions{}).Optimize(context.Background(), in, m)
	require.NoError(t, err)
	assert.Equal(t, 1, res.InitialGaps)
	assert.Equal(t, 0, res.TotalGaps)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, Change{
		Type:      MoveRelocate,
		TeacherID: "t1",
		LessonID:  "a",
		FromKey:   "t1-0-0",
		ToKey:     "t1-0-1",
		Reason:    res.Changes[0].Reason,
	}, res.Changes[0])
	assert.Equal(t, "a", res.Schedule["t1-0-1"].LessonID)
	assert.Equal(t, "t1-0-1", res.Schedule["t1-0-1"].Key)
	assert.Equal(t, "b", res.Schedule["t1-0-2"].LessonID)
	assert.Len(t, in, 2)
	assert.Contains(t, in, "t1-0-0")
}

func TestOptimizeRespectsUnavailability(t *testing.T) {
	blocked := teacher("t1", "sci")
	blocked.Unavailability = []UnavailabilityRecord{{DayOfWeek: "Monday", TimeRange: "2"}}
	m := gapModel(t, []TeacherRecord{blocked}, lesson("a", "science", 1, true), lesson("b", "science", 1, true))
	in := Schedule{
		"t1-0-0": entry("t1-0-0", "a", []string{"t1"}),
		"t1-0-2": entry("t1-0-2", "b", []string{"t1"}),
	}

	res, err := NewOptimizer(OptimizerOptions{}).Optimize(context.Background(), in, m)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalGaps)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, MoveRelocate, res.Changes[0].Type)
	assert.Equal(t, "t1-0-0", res.Changes[0].FromKey)
	assert.Equal(t, "t1-0-3", res.Changes[0].ToKey)
	assert.NotContains(t, res.Schedule, "t1-0-1")
}

func TestOptimizeMovesBlockAsUnit(t *testing.T) {
	m := gapModel(t, []TeacherRecord{teacher("t1", "sci")}, lesson("n", "science", 2, false))
	in := Schedule{
		"t1-0-0": entry("t1-0-0", "retired", []string{"t1"}),
		"t1-0-3": entry("t1-0-3", "n", []string{"t1"}),
		"t1-0-4": entry("t1-0-4", "n", []string{"t1"}),
	}

	res, err := NewOptimizer(OptimizerOptions{}).Optimize(context.Background(), in, m)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InitialGaps)
	assert.Equal(t, 0, res.TotalGaps)
	require.Len(t, res.Changes, 2)
	assert.Equal(t, "t1-0-3", res.Changes[0].FromKey)
	assert.Equal(t, "t1-0-1", res.Changes[0].ToKey)
	assert.Equal(t, "t1-0-4", res.Changes[1].FromKey)
	assert.Equal(t, "t1-0-2", res.Changes[1].ToKey)
	assert.Equal(t, "retired", res.Schedule["t1-0-0"].LessonID)
	assert.Equal(t, "n", res.Schedule["t1-0-1"].LessonID)
	assert.Equal(t, "n", res.Schedule["t1-0-2"].LessonID)
}

func classEntry(key, lessonID, teacherID string) ScheduledEntry {
	e := entry(key, lessonID, []string{teacherID})
	e.ClassIDs = []string{"c"}
	return e
}

func TestOptimizeSwapAcrossTeachers(t *testing.T) {
	m := gapModel(t, []TeacherRecord{teacher("ta", "sci"), teacher("tb", "sci")},
		lesson("la1", "science", 1, true),
		lesson("la2", "science", 1, true),
		lesson("lb", "science", 1, true),
	)
	in := Schedule{
		"ta-0-0": classEntry("ta-0-0", "la1", "ta"),
		"ta-0-2": classEntry("ta-0-2", "la2", "ta"),
		"tb-0-1": classEntry("tb-0-1", "lb", "tb"),
	}

	res, err := NewOptimizer(OptimizerOptions{}).Optimize(context.Background(), in, m)
	require.NoError(t, err)
	assert.Equal(t, 1, res.InitialGaps)
	assert.Equal(t, 0, res.TotalGaps)
	require.Len(t, res.Changes, 2)
	assert.Equal(t, Change{Type: MoveSwap, TeacherID: "ta", LessonID: "la1", FromKey: "ta-0-0", ToKey: "ta-0-1", Reason: res.Changes[0].Reason}, res.Changes[0])
	assert.Equal(t, Change{Type: MoveSwap, TeacherID: "tb", LessonID: "lb", FromKey: "tb-0-1", ToKey: "tb-0-0", Reason: res.Changes[1].Reason}, res.Changes[1])
	assert.Equal(t, "la1", res.Schedule["ta-0-1"].LessonID)
	assert.Equal(t, "la2", res.Schedule["ta-0-2"].LessonID)
	assert.Equal(t, "lb", res.Schedule["tb-0-0"].LessonID)
	assertNoDoubleBooking(t, res.Schedule)
}

func TestOptimizeRelocatesPastBlockedHole(t *testing.T) {
	m := gapModel(t, []TeacherRecord{teacher("ta", "sci"), teacher("tb", "sci")},
		lesson("la1", "science", 1, true),
		lesson("la2", "science", 1, true),
		lesson("lb", "science", 2, false),
	)
	in := Schedule{
		"ta-0-0": classEntry("ta-0-0", "la1", "ta"),
		"ta-0-3": classEntry("ta-0-3", "la2", "ta"),
		"tb-0-1": classEntry("tb-0-1", "lb", "tb"),
		"tb-0-2": classEntry("tb-0-2", "lb", "tb"),
	}

	res, err := NewOptimizer(OptimizerOptions{}).Optimize(context.Background(), in, m)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InitialGaps)
	assert.Equal(t, 0, res.TotalGaps)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, MoveRelocate, res.Changes[0].Type)
	assert.Equal(t, "ta-0-0", res.Changes[0].FromKey)
	assert.Equal(t, "ta-0-4", res.Changes[0].ToKey)
	assert.Equal(t, "lb", res.Schedule["tb-0-1"].LessonID)
	assert.Equal(t, "lb", res.Schedule["tb-0-2"].LessonID)
	assertNoDoubleBooking(t, res.Schedule)
}

func TestOptimizeMerge(t *testing.T) {
	blocked := teacher("t1", "sci")
	blocked.Unavailability = []UnavailabilityRecord{{DayOfWeek: "Monday", TimeRange: "2"}}
	m := gapModel(t, []TeacherRecord{blocked}, lesson("m", "science", 2, true))
	in := Schedule{
		"t1-0-0": entry("t1-0-0", "m", []string{"t1"}),
		"t1-0-2": entry("t1-0-2", "retired", []string{"t1"}),
		"t1-1-4": entry("t1-1-4", "m", []string{"t1"}),
	}

	res, err := NewOptimizer(OptimizerOptions{}).Optimize(context.Background(), in, m)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalGaps)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, MoveMerge, res.Changes[0].Type)
	assert.Equal(t, "t1-0-0", res.Changes[0].FromKey)
	assert.Equal(t, "t1-1-3", res.Changes[0].ToKey)
}

func TestOptimizeIdempotentAndMonotone(t *testing.T) {
	m := mustModel(t, schoolInput())
	solved, err := NewSolver(Options{Weights: Weights{Variance: 1, Unassigned: 10}}).Solve(context.Background(), m)
	require.NoError(t, err)

	opt := NewOptimizer(OptimizerOptions{})
	first, err := opt.Optimize(context.Background(), solved.Schedule, m)
	require.NoError(t, err)
	assert.LessOrEqual(t, first.TotalGaps, first.InitialGaps)
	assert.Equal(t, solved.TotalGaps, first.InitialGaps)
	assert.Equal(t, TotalGaps(first.Schedule), first.TotalGaps)
	assert.Equal(t, solved.Schedule.HoursByLesson(), first.Schedule.HoursByLesson())
	assertNoDoubleBooking(t, first.Schedule)

	second, err := opt.Optimize(context.Background(), first.Schedule, m)
	require.NoError(t, err)
	assert.Empty(t, second.Changes)
	a, err := Marshal(first.Schedule)
	require.NoError(t, err)
	b, err := Marshal(second.Schedule)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestOptimizeCancelled(t *testing.T) {
	m := gapModel(t, []TeacherRecord{teacher("t1", "sci")}, lesson("a", "science", 1, true), lesson("b", "science", 1, true))
	in := Schedule{
		"t1-0-0": entry("t1-0-0", "a", []string{"t1"}),
		"t1-0-2": entry("t1-0-2", "b", []string{"t1"}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewOptimizer(OptimizerOptions{}).Optimize(ctx, in, m)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Changes)
	assert.Equal(t, 1, res.TotalGaps)
	assert.Len(t, res.Schedule, 2)
}

func TestOptimizeRejectsUnparseableKey(t *testing.T) {
	m := gapModel(t, []TeacherRecord{teacher("t1", "sci")})
	_, err := NewOptimizer(OptimizerOptions{}).Optimize(context.Background(), Schedule{"bogus": entry("bogus", "a", nil)}, m)
	assert.ErrorIs(t, err, ErrCorruptInput)
}
