package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

const costEpsilon = 1e-9

// Options configure a Solver. Zero values fall back to defaults.
type Options struct {
	Weights       Weights
	MaxBlockHours int
	Workers       int
	// CoResourceCount is how many distinct teachers and locations a lesson that
	// requires multiple resources binds in every hour.
	CoResourceCount int
	// SharedLocation lets multi-resource lessons bind a single location.
	SharedLocation bool
}

func (o Options) withDefaults() Options {
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights()
	}
	if o.MaxBlockHours <= 0 {
		o.MaxBlockHours = 2
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.CoResourceCount < 2 {
		o.CoResourceCount = 2
	}
	return o
}

// Result is the outcome of one solver run.
type Result struct {
	Schedule         Schedule
	Unassigned       []UnassignedRemainder
	FitnessScore     float64
	WorkloadVariance float64
	TotalGaps        int
	UnassignedHours  int
	Cost             float64
	Warnings         []Warning
	Logs             []string
	Cancelled        bool
}

// Solver places lesson-hours greedily, most constrained lesson first.
type Solver struct {
	opts Options
}

// NewSolver builds a solver.
func NewSolver(opts Options) *Solver {
	return &Solver{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (s *Solver) Options() Options { return s.opts }

// Solve produces a conflict-free schedule for m. Lessons that cannot be fully placed
// are reported as unassigned. Cancellation of ctx is checked between lessons; the
// partial result is returned with Cancelled set and a nil error.
func (s *Solver) Solve(ctx context.Context, m *InputModel) (*Result, error) {
	if err := validateModel(m); err != nil {
		return nil, err
	}
	candidates, warnings := ResolveCandidates(m)
	st := newSolveState(m, s.opts)
	for _, w := range m.Warnings {
		st.logf("%s", w)
	}
	for _, w := range warnings {
		st.logf("%s", w)
	}

	res := &Result{Warnings: append(append([]Warning(nil), m.Warnings...), warnings...)}
	order := orderLessons(m.Lessons, candidates)
	for i, lesson := range order {
		if err := ctx.Err(); err != nil {
			res.Cancelled = true
			st.logf("run stopped: %v; %d lessons left unplaced", err, len(order)-i)
			for _, rest := range order[i:] {
				st.unassign(rest, rest.WeeklyHours, "run cancelled")
			}
			break
		}
		st.placeLesson(lesson, candidates[lesson.ID])
	}

	for _, u := range st.unassigned {
		res.UnassignedHours += u.RemainingHours
	}
	metrics := Evaluate(st.schedule, m, res.UnassignedHours, s.opts.Weights)
	res.Schedule = st.schedule
	res.Unassigned = st.unassigned
	res.WorkloadVariance = metrics.WorkloadVariance
	res.TotalGaps = metrics.TotalGaps
	res.Cost = metrics.Cost
	res.FitnessScore = metrics.FitnessScore
	st.logf("placed %d lesson-hours, %d unassigned, %d gaps, variance %.3f, fitness %.2f",
		len(st.schedule), res.UnassignedHours, res.TotalGaps, res.WorkloadVariance, res.FitnessScore)
	res.Logs = st.logs
	return res, nil
}

func validateModel(m *InputModel) error {
	if m == nil {
		return fmt.Errorf("%w: nil model", ErrCorruptInput)
	}
	if m.Grid == nil || m.Grid.Size() == 0 {
		return ErrEmptyGrid
	}
	for _, lesson := range m.Lessons {
		if lesson == nil || lesson.ID == "" {
			return fmt.Errorf("%w: lesson without id", ErrCorruptInput)
		}
	}
	for id, teacher := range m.Teachers {
		if teacher == nil || teacher.ID != id {
			return fmt.Errorf("%w: teacher index mismatch for %q", ErrCorruptInput, id)
		}
	}
	return nil
}

// orderLessons sorts most constrained first: multi-resource, then non-splittable,
// then fewest resource options, then more weekly hours, then id.
func orderLessons(lessons []*LessonDemand, candidates map[string]Candidates) []*LessonDemand {
	out := append([]*LessonDemand(nil), lessons...)
	options := func(l *LessonDemand) int {
		c := candidates[l.ID]
		return len(c.TeacherIDs) * max(1, len(c.LocationIDs))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RequiresMultipleResources != b.RequiresMultipleResources {
			return a.RequiresMultipleResources
		}
		if a.Splittable != b.Splittable {
			return !a.Splittable
		}
		if oa, ob := options(a), options(b); oa != ob {
			return oa < ob
		}
		if a.WeeklyHours != b.WeeklyHours {
			return a.WeeklyHours > b.WeeklyHours
		}
		return a.ID < b.ID
	})
	return out
}

// placement is one feasible block for a lesson.
type placement struct {
	teachers  []string
	locations []string
	day       Day
	start     int
	length    int
	cost      float64
}

type solveState struct {
	model       *InputModel
	opts        Options
	occ         *occupancy
	unavailable map[string]weekMask
	load        map[string]int
	inPool      map[string]bool
	sum         float64
	sumSq       float64
	lessonDays  map[string]*[MaxDays]int
	schedule    Schedule
	unassigned  []UnassignedRemainder
	logs        []string
}

func newSolveState(m *InputModel, opts Options) *solveState {
	st := &solveState{
		model:       m,
		opts:        opts,
		occ:         newOccupancy(),
		unavailable: make(map[string]weekMask, len(m.Teachers)),
		load:        make(map[string]int, len(m.TeacherIDs)),
		inPool:      make(map[string]bool, len(m.TeacherIDs)),
		lessonDays:  make(map[string]*[MaxDays]int, len(m.Lessons)),
		schedule:    make(Schedule),
	}
	for _, id := range m.TeacherIDs {
		st.inPool[id] = true
	}
	for id, teacher := range m.Teachers {
		var w weekMask
		for slot := range teacher.Unavailable {
			w[slot.Day] |= blockMask(slot.Hour, 1)
		}
		st.unavailable[id] = w
	}
	for _, lesson := range m.Lessons {
		st.lessonDays[lesson.ID] = &[MaxDays]int{}
	}
	return st
}

func (st *solveState) logf(format string, args ...any) {
	st.logs = append(st.logs, fmt.Sprintf(format, args...))
}

func (st *solveState) placeLesson(lesson *LessonDemand, cands Candidates) {
	need := 1
	if lesson.RequiresMultipleResources {
		need = st.opts.CoResourceCount
	}
	options := teacherOptions(cands.TeacherIDs, need)
	if len(options) == 0 {
		st.unassign(lesson, lesson.WeeklyHours, fmt.Sprintf("needs %d eligible teachers, has %d", need, len(cands.TeacherIDs)))
		return
	}
	hoursPerDay := st.model.Grid.HoursPerDay()

	if !lesson.Splittable {
		if lesson.WeeklyHours > hoursPerDay {
			st.unassign(lesson, lesson.WeeklyHours, fmt.Sprintf("a %d-hour block does not fit a %d-hour day", lesson.WeeklyHours, hoursPerDay))
			return
		}
		if p, ok := st.best(lesson, cands, options, lesson.WeeklyHours); ok {
			st.commit(lesson, p)
			return
		}
		st.unassign(lesson, lesson.WeeklyHours, fmt.Sprintf("no free contiguous %d-hour block", lesson.WeeklyHours))
		return
	}

	// Later blocks stay with the teachers of the first block while they still fit.
	maxBlock := min(st.opts.MaxBlockHours, hoursPerDay)
	remaining := lesson.WeeklyHours
	var bound [][]string
	for remaining > 0 {
		try := options
		if bound != nil {
			try = bound
		}
		p, ok := st.bestBlock(lesson, cands, try, remaining, maxBlock)
		if !ok && bound != nil {
			if p, ok = st.bestBlock(lesson, cands, options, remaining, maxBlock); ok {
				st.logf("lesson %s continues with %s, earlier teachers are full", lesson.ID, strings.Join(p.teachers, "+"))
			}
		}
		if !ok {
			break
		}
		st.commit(lesson, p)
		remaining -= p.length
		if bound == nil {
			bound = [][]string{p.teachers}
		}
	}
	if remaining > 0 {
		st.unassign(lesson, remaining, "no feasible slot for the remaining hours")
	}
}

// bestBlock tries the largest block first and shrinks it until something fits.
func (st *solveState) bestBlock(lesson *LessonDemand, cands Candidates, options [][]string, remaining, maxBlock int) (placement, bool) {
	for length := min(remaining, maxBlock); length >= 1; length-- {
		if p, ok := st.best(lesson, cands, options, length); ok {
			return p, true
		}
	}
	return placement{}, false
}

// best evaluates every teacher option, in parallel when configured, and returns the
// cheapest feasible block. Ties go to the earlier option, day and hour.
func (st *solveState) best(lesson *LessonDemand, cands Candidates, options [][]string, length int) (placement, bool) {
	type outcome struct {
		p  placement
		ok bool
	}
	results := make([]outcome, len(options))
	if st.opts.Workers > 1 && len(options) > 1 {
		var g errgroup.Group
		g.SetLimit(st.opts.Workers)
		for i := range options {
			i := i
			g.Go(func() error {
				p, ok := st.evaluate(lesson, cands, options[i], length)
				results[i] = outcome{p: p, ok: ok}
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range options {
			p, ok := st.evaluate(lesson, cands, options[i], length)
			results[i] = outcome{p: p, ok: ok}
		}
	}

	var chosen placement
	found := false
	for _, r := range results {
		if r.ok && (!found || r.p.cost < chosen.cost-costEpsilon) {
			chosen, found = r.p, true
		}
	}
	return chosen, found
}

// evaluate scans the grid for the cheapest block of one teacher option. It only
// reads solver state, so options can be evaluated concurrently.
func (st *solveState) evaluate(lesson *LessonDemand, cands Candidates, teachers []string, length int) (placement, bool) {
	var blocked weekMask
	for _, id := range teachers {
		u := st.unavailable[id]
		for d := range blocked {
			blocked[d] |= u[d]
		}
	}

	grid := st.model.Grid
	var chosen placement
	found := false
	for _, day := range grid.Days() {
		for start := 1; start+length-1 <= grid.HoursPerDay(); start++ {
			mask := blockMask(start, length)
			if blocked[day]&mask != 0 {
				continue
			}
			if !st.occ.free(resources{teachers: teachers, classes: lesson.ClassIDs}, day, mask) {
				continue
			}
			locations, ok := st.pickLocations(lesson, cands, day, mask)
			if !ok {
				continue
			}
			cost := st.marginalCost(lesson, teachers, day, mask, length)
			if !found || cost < chosen.cost-costEpsilon {
				chosen = placement{teachers: teachers, locations: locations, day: day, start: start, length: length, cost: cost}
				found = true
			}
		}
	}
	return chosen, found
}

func (st *solveState) pickLocations(lesson *LessonDemand, cands Candidates, day Day, mask uint16) ([]string, bool) {
	if len(cands.LocationIDs) == 0 {
		return []string{}, !cands.LocationRequired
	}
	need := 1
	if lesson.RequiresMultipleResources && !st.opts.SharedLocation {
		need = st.opts.CoResourceCount
	}
	picked := make([]string, 0, need)
	for _, id := range cands.LocationIDs {
		if st.occ.locations[id][day]&mask != 0 {
			continue
		}
		picked = append(picked, id)
		if len(picked) == need {
			return picked, true
		}
	}
	return nil, false
}

// marginalCost is the objective increase of committing the block.
func (st *solveState) marginalCost(lesson *LessonDemand, teachers []string, day Day, mask uint16, length int) float64 {
	w := st.opts.Weights
	n := float64(len(st.model.TeacherIDs))
	sum, sumSq := st.sum, st.sumSq
	gapDelta := 0
	k := float64(length)
	for _, id := range teachers {
		if st.inPool[id] {
			x := float64(st.load[id])
			sum += k
			sumSq += (x+k)*(x+k) - x*x
		}
		current := st.occ.teachers[id][day]
		gapDelta += dayGaps(current|mask) - dayGaps(current)
	}
	varianceDelta := varianceOf(sum, sumSq, n) - varianceOf(st.sum, st.sumSq, n)
	repeats := float64(st.lessonDays[lesson.ID][day])
	return w.Variance*varianceDelta + w.Gaps*float64(gapDelta) + w.Spread*repeats
}

func (st *solveState) commit(lesson *LessonDemand, p placement) {
	mask := blockMask(p.start, p.length)
	st.occ.mark(resources{teachers: p.teachers, locations: p.locations, classes: lesson.ClassIDs}, p.day, mask)
	for _, id := range p.teachers {
		if !st.inPool[id] {
			continue
		}
		x := float64(st.load[id])
		k := float64(p.length)
		st.sum += k
		st.sumSq += (x+k)*(x+k) - x*x
		st.load[id] += p.length
	}
	st.lessonDays[lesson.ID][p.day]++

	for hour := p.start; hour < p.start+p.length; hour++ {
		key := CanonicalKey(p.teachers[0], TimeSlot{Day: p.day, Hour: hour})
		st.schedule[key] = ScheduledEntry{
			Key:         key,
			LessonID:    lesson.ID,
			TeacherIDs:  cloneIDs(p.teachers),
			LocationIDs: cloneIDs(p.locations),
			ClassIDs:    cloneIDs(lesson.ClassIDs),
			GradeLevel:  lesson.GradeLevel,
		}
	}
	where := "no location"
	if len(p.locations) > 0 {
		where = strings.Join(p.locations, "+")
	}
	st.logf("placed %s (%s) %s hours %d-%d with %s in %s",
		lesson.ID, lesson.Name, p.day, p.start, p.start+p.length-1, strings.Join(p.teachers, "+"), where)
}

func (st *solveState) unassign(lesson *LessonDemand, hours int, reason string) {
	st.unassigned = append(st.unassigned, UnassignedRemainder{
		LessonID:       lesson.ID,
		LessonName:     lesson.Name,
		RemainingHours: hours,
	})
	st.logf("unassigned %d of %d hours of %s (%s): %s", hours, lesson.WeeklyHours, lesson.ID, lesson.Name, reason)
}

// teacherOptions lists the teacher groups a lesson can bind: single teachers, or
// every combination of size need in lexicographic order.
func teacherOptions(ids []string, need int) [][]string {
	if len(ids) < need || need <= 0 {
		return nil
	}
	var out [][]string
	combo := make([]string, 0, need)
	var walk func(start int)
	walk = func(start int) {
		if len(combo) == need {
			out = append(out, cloneIDs(combo))
			return
		}
		for i := start; i <= len(ids)-(need-len(combo)); i++ {
			combo = append(combo, ids[i])
			walk(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	walk(0)
	return out
}
