package scheduler

import "math/bits"

// weekMask holds one bit per hour (bit 0 = hour 1) for each day.
type weekMask [MaxDays]uint16

// blockMask covers hours start..start+length-1.
func blockMask(start, length int) uint16 {
	return (uint16(1)<<length - 1) << (start - 1)
}

// dayGaps counts idle hours strictly between the first and last occupied hour.
func dayGaps(m uint16) int {
	if m == 0 {
		return 0
	}
	first := bits.TrailingZeros16(m)
	last := 15 - bits.LeadingZeros16(m)
	return last - first + 1 - bits.OnesCount16(m)
}

func (w weekMask) gaps() int {
	total := 0
	for _, m := range w {
		total += dayGaps(m)
	}
	return total
}

func (w weekMask) hours() int {
	total := 0
	for _, m := range w {
		total += bits.OnesCount16(m)
	}
	return total
}

// occupancy indexes which hours every teacher, location and class already holds.
type occupancy struct {
	teachers  map[string]weekMask
	locations map[string]weekMask
	classes   map[string]weekMask
}

func newOccupancy() *occupancy {
	return &occupancy{
		teachers:  make(map[string]weekMask),
		locations: make(map[string]weekMask),
		classes:   make(map[string]weekMask),
	}
}

// resources is the set of ids a placement binds in every hour of its block.
type resources struct {
	teachers  []string
	locations []string
	classes   []string
}

func (o *occupancy) free(r resources, day Day, mask uint16) bool {
	return allFree(o.teachers, r.teachers, day, mask) &&
		allFree(o.locations, r.locations, day, mask) &&
		allFree(o.classes, r.classes, day, mask)
}

func (o *occupancy) mark(r resources, day Day, mask uint16) {
	setBits(o.teachers, r.teachers, day, mask)
	setBits(o.locations, r.locations, day, mask)
	setBits(o.classes, r.classes, day, mask)
}

func (o *occupancy) clear(r resources, day Day, mask uint16) {
	clearBits(o.teachers, r.teachers, day, mask)
	clearBits(o.locations, r.locations, day, mask)
	clearBits(o.classes, r.classes, day, mask)
}

func (o *occupancy) teacherGaps(id string) int {
	return o.teachers[id].gaps()
}

// totalGaps sums the gaps of every teacher holding at least one hour.
func (o *occupancy) totalGaps() int {
	total := 0
	for _, w := range o.teachers {
		total += w.gaps()
	}
	return total
}

func allFree(index map[string]weekMask, ids []string, day Day, mask uint16) bool {
	for _, id := range ids {
		if index[id][day]&mask != 0 {
			return false
		}
	}
	return true
}

func setBits(index map[string]weekMask, ids []string, day Day, mask uint16) {
	for _, id := range ids {
		w := index[id]
		w[day] |= mask
		index[id] = w
	}
}

func clearBits(index map[string]weekMask, ids []string, day Day, mask uint16) {
	for _, id := range ids {
		w := index[id]
		w[day] &^= mask
		index[id] = w
	}
}
