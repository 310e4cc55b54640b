package scheduler

// Weights tune the solver objective α·variance + β·gaps + γ·unassignedHours, plus a
// δ penalty for placing the same lesson twice on one day.
type Weights struct {
	Variance   float64 `json:"variance"`
	Gaps       float64 `json:"gaps"`
	Unassigned float64 `json:"unassigned"`
	Spread     float64 `json:"spread"`
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{Variance: 1, Gaps: 2, Unassigned: 10, Spread: 0.5}
}

// Metrics is the quality summary of a schedule.
type Metrics struct {
	WorkloadVariance float64 `json:"workloadVariance"`
	TotalGaps        int     `json:"totalGaps"`
	UnassignedHours  int     `json:"unassignedHours"`
	Cost             float64 `json:"cost"`
	FitnessScore     float64 `json:"fitnessScore"`
}

// FitnessScore maps a non-negative cost onto (0, 100]; 100 means zero cost.
func FitnessScore(cost float64) float64 {
	if cost < 0 {
		cost = 0
	}
	return 100 * 100 / (100 + cost)
}

// Evaluate scores a schedule against the active teacher pool of m.
func Evaluate(s Schedule, m *InputModel, unassignedHours int, w Weights) Metrics {
	occ := occupancyOf(s)
	loads := make(map[string]int, len(m.TeacherIDs))
	for id, week := range occ.teachers {
		loads[id] = week.hours()
	}
	variance := workloadVariance(m.TeacherIDs, loads)
	gaps := occ.totalGaps()
	cost := w.Variance*variance + w.Gaps*float64(gaps) + w.Unassigned*float64(unassignedHours)
	return Metrics{
		WorkloadVariance: variance,
		TotalGaps:        gaps,
		UnassignedHours:  unassignedHours,
		Cost:             cost,
		FitnessScore:     FitnessScore(cost),
	}
}

// TotalGaps counts idle teacher hours across the whole schedule.
func TotalGaps(s Schedule) int {
	return occupancyOf(s).totalGaps()
}

// TeacherGaps reports the gaps of every teacher holding at least one hour.
func TeacherGaps(s Schedule) map[string]int {
	occ := occupancyOf(s)
	out := make(map[string]int, len(occ.teachers))
	for id, week := range occ.teachers {
		out[id] = week.gaps()
	}
	return out
}

// workloadVariance is the population variance of assigned hours over pool.
func workloadVariance(pool []string, loads map[string]int) float64 {
	if len(pool) == 0 {
		return 0
	}
	n := float64(len(pool))
	var sum, sumSq float64
	for _, id := range pool {
		x := float64(loads[id])
		sum += x
		sumSq += x * x
	}
	return varianceOf(sum, sumSq, n)
}

func varianceOf(sum, sumSq, n float64) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / n
	if v := sumSq/n - mean*mean; v > 0 {
		return v
	}
	return 0
}

// occupancyOf indexes a schedule. Entries with keys that do not parse are ignored.
func occupancyOf(s Schedule) *occupancy {
	occ := newOccupancy()
	for key, entry := range s {
		parsed, err := ParseKey(key, entry.PrimaryTeacher())
		if err != nil {
			continue
		}
		teachers := entry.TeacherIDs
		if len(teachers) == 0 {
			teachers = []string{parsed.TeacherID}
		}
		mask := blockMask(parsed.Slot.Hour, 1)
		occ.mark(resources{teachers: teachers, locations: entry.LocationIDs, classes: entry.ClassIDs}, parsed.Slot.Day, mask)
	}
	return occ
}
