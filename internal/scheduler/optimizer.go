package scheduler

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// MoveType names an optimizer move.
type MoveType string

const (
	MoveRelocate MoveType = "relocate"
	MoveSwap     MoveType = "swap"
	MoveMerge    MoveType = "merge"
)

// Change is one moved lesson-hour in the optimizer changelog.
type Change struct {
	Type      MoveType `json:"type"`
	TeacherID string   `json:"teacherId"`
	LessonID  string   `json:"lessonId"`
	FromKey   string   `json:"fromKey"`
	ToKey     string   `json:"toKey"`
	Reason    string   `json:"reason"`
}

// OptimizerOptions configure an Optimizer.
type OptimizerOptions struct {
	MaxPasses int
}

// OptimizeResult is the outcome of one optimizer run.
type OptimizeResult struct {
	Schedule    Schedule
	InitialGaps int
	TotalGaps   int
	Changes     []Change
	Passes      int
	Cancelled   bool
}

// Optimizer reduces idle teacher hours of an existing schedule by local search.
type Optimizer struct {
	opts OptimizerOptions
}

// NewOptimizer builds an optimizer. MaxPasses defaults to 50.
func NewOptimizer(opts OptimizerOptions) *Optimizer {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = 50
	}
	return &Optimizer{opts: opts}
}

// Optimize runs passes of relocate, swap and merge moves over s until a pass accepts
// nothing or the pass bound is reached. A move is accepted only when it strictly
// lowers the gaps of the teachers it touches, so total gaps never grow and re-running
// on the output finds nothing to do. The input schedule is not modified.
func (o *Optimizer) Optimize(ctx context.Context, s Schedule, m *InputModel) (*OptimizeResult, error) {
	if err := validateModel(m); err != nil {
		return nil, err
	}
	state, err := newGapState(s, m)
	if err != nil {
		return nil, err
	}
	res := &OptimizeResult{InitialGaps: state.occ.totalGaps()}

	for pass := 1; pass <= o.opts.MaxPasses; pass++ {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		res.Passes = pass
		applied := 0
		for _, teacher := range state.teachersWithGaps() {
			if state.occ.teacherGaps(teacher) == 0 {
				continue
			}
			if state.relocate(teacher, true) || state.swap(teacher) || state.merge(teacher) || state.relocate(teacher, false) {
				applied++
			}
		}
		if applied == 0 {
			break
		}
	}

	res.Schedule = state.schedule()
	res.TotalGaps = state.occ.totalGaps()
	res.Changes = state.changes
	return res, nil
}

// unit is the smallest movable piece: one cell of a splittable lesson or the whole
// contiguous block of a non-splittable one.
type unit struct {
	entry      ScheduledEntry
	primary    string
	res        resources
	day        Day
	start      int
	length     int
	movable    bool
	splittable bool
}

func (u *unit) mask() uint16 { return blockMask(u.start, u.length) }

type gapState struct {
	grid        *Grid
	occ         *occupancy
	unavailable map[string]weekMask
	units       []*unit
	changes     []Change
}

type cell struct {
	key    string
	parsed ParsedKey
	entry  ScheduledEntry
}

func newGapState(s Schedule, m *InputModel) (*gapState, error) {
	st := &gapState{
		grid:        m.Grid,
		occ:         newOccupancy(),
		unavailable: make(map[string]weekMask, len(m.Teachers)),
	}
	for id, teacher := range m.Teachers {
		var w weekMask
		for slot := range teacher.Unavailable {
			w[slot.Day] |= blockMask(slot.Hour, 1)
		}
		st.unavailable[id] = w
	}

	cells := make([]cell, 0, len(s))
	for _, key := range s.Keys() {
		entry := s[key]
		parsed, err := ParseKey(key, entry.PrimaryTeacher())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptInput, err)
		}
		entry = entry.clone()
		entry.TeacherIDs = withPrimary(entry.TeacherIDs, parsed.TeacherID)
		cells = append(cells, cell{key: key, parsed: parsed, entry: entry})
	}

	for i := 0; i < len(cells); {
		c := cells[i]
		lesson, known := m.Lesson(c.entry.LessonID)
		u := &unit{
			entry:   c.entry,
			primary: c.parsed.TeacherID,
			res: resources{
				teachers:  c.entry.TeacherIDs,
				locations: c.entry.LocationIDs,
				classes:   c.entry.ClassIDs,
			},
			day:     c.parsed.Slot.Day,
			start:   c.parsed.Slot.Hour,
			length:  1,
			movable: known,
		}
		i++
		if known && lesson.Splittable {
			u.splittable = true
		} else if known {
			// Keys sort by teacher, day, hour, so a block's cells are adjacent.
			for i < len(cells) && continuesBlock(u, cells[i]) {
				u.length++
				i++
			}
		}
		st.add(u)
	}
	return st, nil
}

func continuesBlock(u *unit, c cell) bool {
	return c.parsed.TeacherID == u.primary &&
		c.parsed.Slot.Day == u.day &&
		c.parsed.Slot.Hour == u.start+u.length &&
		c.entry.LessonID == u.entry.LessonID &&
		sameIDs(c.entry.TeacherIDs, u.res.teachers) &&
		sameIDs(c.entry.LocationIDs, u.res.locations) &&
		sameIDs(c.entry.ClassIDs, u.res.classes)
}

// add registers a unit. Units that collide with already registered ones are pinned,
// together with everything they collide with, so clearing one never frees the other.
func (st *gapState) add(u *unit) {
	mask := u.mask()
	if !st.occ.free(u.res, u.day, mask) {
		u.movable = false
		for _, other := range st.units {
			if other.day == u.day && other.mask()&mask != 0 && overlaps(other.res, u.res) {
				other.movable = false
			}
		}
	}
	st.occ.mark(u.res, u.day, mask)
	st.units = append(st.units, u)
}

func (st *gapState) teachersWithGaps() []string {
	var out []string
	for id, w := range st.occ.teachers {
		if w.gaps() > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// unitsOf lists movable units keyed to teacher, ordered by day and hour.
func (st *gapState) unitsOf(teacher string) []*unit {
	var out []*unit
	for _, u := range st.units {
		if u.movable && u.primary == teacher {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].day != out[j].day {
			return out[i].day < out[j].day
		}
		return out[i].start < out[j].start
	})
	return out
}

// unitsExcept lists movable units of every other teacher, ordered by teacher, day
// and hour.
func (st *gapState) unitsExcept(teacher string) []*unit {
	var out []*unit
	for _, u := range st.units {
		if u.movable && u.primary != teacher {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].primary != out[j].primary {
			return out[i].primary < out[j].primary
		}
		if out[i].day != out[j].day {
			return out[i].day < out[j].day
		}
		return out[i].start < out[j].start
	})
	return out
}

func (st *gapState) gapsOf(teachers []string) int {
	total := 0
	for _, id := range teachers {
		total += st.occ.teacherGaps(id)
	}
	return total
}

// fits reports whether u could occupy (day, start) given the current occupancy,
// which must not contain u itself.
func (st *gapState) fits(u *unit, day Day, start int) bool {
	if start < 1 || start+u.length-1 > st.grid.HoursPerDay() || !st.grid.Contains(TimeSlot{Day: day, Hour: start}) {
		return false
	}
	mask := blockMask(start, u.length)
	for _, id := range u.res.teachers {
		if st.unavailable[id][day]&mask != 0 {
			return false
		}
	}
	return st.occ.free(u.res, day, mask)
}

// target is a candidate position for a unit.
type target struct {
	day   Day
	start int
}

// bestTarget removes u, tries every target and restores u. It returns the target with
// the lowest resulting gaps if that is strictly below the current gaps.
func (st *gapState) bestTarget(u *unit, targets []target) (target, int, int, bool) {
	before := st.gapsOf(u.res.teachers)
	st.occ.clear(u.res, u.day, u.mask())
	defer st.occ.mark(u.res, u.day, u.mask())

	var chosen target
	best := before
	found := false
	for _, t := range targets {
		if t.day == u.day && t.start == u.start {
			continue
		}
		if !st.fits(u, t.day, t.start) {
			continue
		}
		mask := blockMask(t.start, u.length)
		st.occ.mark(u.res, t.day, mask)
		after := st.gapsOf(u.res.teachers)
		st.occ.clear(u.res, t.day, mask)
		if after < best {
			chosen, best, found = t, after, true
		}
	}
	return chosen, before, best, found
}

// relocate moves one unit of teacher. With holesOnly the targets are restricted to
// idle holes of the teacher's days; otherwise any free position of the week counts.
func (st *gapState) relocate(teacher string, holesOnly bool) bool {
	for _, u := range st.unitsOf(teacher) {
		var targets []target
		for _, day := range st.grid.Days() {
			current := st.occ.teachers[teacher][day]
			holes := holeMask(current)
			own := uint16(0)
			if day == u.day {
				own = u.mask()
			}
			for start := 1; start+u.length-1 <= st.grid.HoursPerDay(); start++ {
				mask := blockMask(start, u.length)
				if !holesOnly || mask&holes != 0 && mask&^(holes|own) == 0 {
					targets = append(targets, target{day: day, start: start})
				}
			}
		}
		if t, before, after, ok := st.bestTarget(u, targets); ok {
			st.apply(MoveRelocate, u, t, fmt.Sprintf("closes idle hours of %s: gaps %d -> %d", strings.Join(u.res.teachers, "+"), before, after))
			return true
		}
	}
	return false
}

// swap exchanges the positions of a unit of teacher and another equal-length unit,
// first among the teacher's own units and then among everyone else's. Each unit keeps
// its teachers, only the slots trade places.
func (st *gapState) swap(teacher string) bool {
	units := st.unitsOf(teacher)
	others := st.unitsExcept(teacher)
	for i, a := range units {
		candidates := append(append([]*unit{}, units[i+1:]...), others...)
		for _, b := range candidates {
			if a.length != b.length || a.day == b.day && a.start == b.start {
				continue
			}
			if a.entry.LessonID == b.entry.LessonID && sameIDs(a.res.teachers, b.res.teachers) {
				continue
			}
			affected := unionIDs(a.res.teachers, b.res.teachers)
			before := st.gapsOf(affected)

			st.occ.clear(a.res, a.day, a.mask())
			st.occ.clear(b.res, b.day, b.mask())
			ok := false
			after := before
			if st.fits(a, b.day, b.start) {
				st.occ.mark(a.res, b.day, blockMask(b.start, a.length))
				if st.fits(b, a.day, a.start) {
					st.occ.mark(b.res, a.day, blockMask(a.start, b.length))
					after = st.gapsOf(affected)
					ok = after < before
					st.occ.clear(b.res, a.day, blockMask(a.start, b.length))
				}
				st.occ.clear(a.res, b.day, blockMask(b.start, a.length))
			}
			st.occ.mark(a.res, a.day, a.mask())
			st.occ.mark(b.res, b.day, b.mask())
			if !ok {
				continue
			}

			reason := fmt.Sprintf("swap lowers gaps of %s: %d -> %d", strings.Join(affected, "+"), before, after)
			aTarget := target{day: b.day, start: b.start}
			bTarget := target{day: a.day, start: a.start}
			st.occ.clear(a.res, a.day, a.mask())
			st.occ.clear(b.res, b.day, b.mask())
			st.record(MoveSwap, a, aTarget, reason)
			st.record(MoveSwap, b, bTarget, reason)
			a.day, a.start = aTarget.day, aTarget.start
			b.day, b.start = bTarget.day, bTarget.start
			st.occ.mark(a.res, a.day, a.mask())
			st.occ.mark(b.res, b.day, b.mask())
			return true
		}
	}
	return false
}

// merge moves a single-hour cell of a splittable lesson next to another placement of
// the same lesson for the same teacher.
func (st *gapState) merge(teacher string) bool {
	units := st.unitsOf(teacher)
	for _, u := range units {
		if !u.splittable || u.length != 1 {
			continue
		}
		var targets []target
		for _, sibling := range units {
			if sibling == u || sibling.entry.LessonID != u.entry.LessonID {
				continue
			}
			if u.day == sibling.day && (u.start == sibling.start-1 || u.start == sibling.start+sibling.length) {
				targets = nil
				break
			}
			targets = append(targets,
				target{day: sibling.day, start: sibling.start - 1},
				target{day: sibling.day, start: sibling.start + sibling.length})
		}
		if len(targets) == 0 {
			continue
		}
		if t, before, after, ok := st.bestTarget(u, targets); ok {
			st.apply(MoveMerge, u, t, fmt.Sprintf("joins %s blocks, gaps of %s: %d -> %d", u.entry.LessonID, strings.Join(u.res.teachers, "+"), before, after))
			return true
		}
	}
	return false
}

func (st *gapState) apply(kind MoveType, u *unit, t target, reason string) {
	st.occ.clear(u.res, u.day, u.mask())
	st.record(kind, u, t, reason)
	u.day, u.start = t.day, t.start
	st.occ.mark(u.res, u.day, u.mask())
}

func (st *gapState) record(kind MoveType, u *unit, t target, reason string) {
	for i := 0; i < u.length; i++ {
		st.changes = append(st.changes, Change{
			Type:      kind,
			TeacherID: u.primary,
			LessonID:  u.entry.LessonID,
			FromKey:   CanonicalKey(u.primary, TimeSlot{Day: u.day, Hour: u.start + i}),
			ToKey:     CanonicalKey(u.primary, TimeSlot{Day: t.day, Hour: t.start + i}),
			Reason:    reason,
		})
	}
}

func (st *gapState) schedule() Schedule {
	out := make(Schedule)
	for _, u := range st.units {
		for i := 0; i < u.length; i++ {
			key := CanonicalKey(u.primary, TimeSlot{Day: u.day, Hour: u.start + i})
			entry := u.entry.clone()
			entry.Key = key
			out[key] = entry
		}
	}
	return out
}

// holeMask returns the idle hours strictly inside the occupied span of m.
func holeMask(m uint16) uint16 {
	if m == 0 {
		return 0
	}
	low := m & -m
	high := uint16(1) << (15 - bits.LeadingZeros16(m))
	span := (high << 1) - low
	return span &^ m
}

func overlaps(a, b resources) bool {
	return shareID(a.teachers, b.teachers) || shareID(a.locations, b.locations) || shareID(a.classes, b.classes)
}

func shareID(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unionIDs(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		set[id] = struct{}{}
	}
	return sortedIDs(set)
}
