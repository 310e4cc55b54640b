// Package scheduler builds weekly lesson timetables and reduces idle gaps in existing ones.
//
// Everything in this package is a pure computation over its arguments: no I/O, no
// package-level mutable state. Callers own persistence and logging.
package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxDays is the number of school days in a weekly cycle.
	MaxDays = 5
	// MaxHoursPerDay is the highest lesson period of a day.
	MaxHoursPerDay = 10
)

var (
	// ErrEmptyGrid is returned when a grid would contain zero bookable slots.
	ErrEmptyGrid = errors.New("scheduler: grid has no bookable slots")
	// ErrCorruptInput marks structurally unusable input.
	ErrCorruptInput = errors.New("scheduler: corrupt input model")
)

// Day is a 0-based weekday index, Monday first.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var dayNames = [MaxDays]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// dayAliases lists the spellings found in stored schedules and preference records.
var dayAliases = map[string]Day{
	"monday":    Monday,
	"mon":       Monday,
	"pazartesi": Monday,
	"tuesday":   Tuesday,
	"tue":       Tuesday,
	"sali":      Tuesday,
	"salı":      Tuesday,
	"wednesday": Wednesday,
	"wed":       Wednesday,
	"carsamba":  Wednesday,
	"çarşamba":  Wednesday,
	"thursday":  Thursday,
	"thu":       Thursday,
	"persembe":  Thursday,
	"perşembe":  Thursday,
	"friday":    Friday,
	"fri":       Friday,
	"cuma":      Friday,
}

func (d Day) String() string {
	if d.Valid() {
		return dayNames[d]
	}
	return "Day(" + strconv.Itoa(int(d)) + ")"
}

// Valid reports whether d is one of the five school days.
func (d Day) Valid() bool {
	return d >= Monday && d <= Friday
}

// ParseDay resolves a day name in any of the accepted spellings.
func ParseDay(raw string) (Day, bool) {
	day, ok := dayAliases[strings.ToLower(strings.TrimSpace(raw))]
	return day, ok
}

// TimeSlot is one (day, hour) cell. Hour is 1-based.
type TimeSlot struct {
	Day  Day `json:"day"`
	Hour int `json:"hour"`
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s-%d", s.Day, s.Hour)
}

// Grid describes the bookable cells of one weekly cycle.
type Grid struct {
	days        int
	hoursPerDay int
}

// NewGrid builds a grid covering the first days weekdays and hours 1..hoursPerDay.
func NewGrid(days, hoursPerDay int) (*Grid, error) {
	if days <= 0 || hoursPerDay <= 0 {
		return nil, ErrEmptyGrid
	}
	if days > MaxDays || hoursPerDay > MaxHoursPerDay {
		return nil, fmt.Errorf("scheduler: grid %dx%d exceeds %dx%d", days, hoursPerDay, MaxDays, MaxHoursPerDay)
	}
	return &Grid{days: days, hoursPerDay: hoursPerDay}, nil
}

// DefaultGrid is the full Monday..Friday, hours 1..10 grid.
func DefaultGrid() *Grid {
	return &Grid{days: MaxDays, hoursPerDay: MaxHoursPerDay}
}

// Days returns the weekdays covered by the grid in order.
func (g *Grid) Days() []Day {
	out := make([]Day, g.days)
	for i := range out {
		out[i] = Day(i)
	}
	return out
}

func (g *Grid) HoursPerDay() int { return g.hoursPerDay }

// Size is the number of bookable cells.
func (g *Grid) Size() int { return g.days * g.hoursPerDay }

// Contains reports whether slot is inside the grid.
func (g *Grid) Contains(slot TimeSlot) bool {
	return slot.Day >= 0 && int(slot.Day) < g.days && slot.Hour >= 1 && slot.Hour <= g.hoursPerDay
}

// Slots lists every cell ordered by day then hour.
func (g *Grid) Slots() []TimeSlot {
	out := make([]TimeSlot, 0, g.Size())
	for d := 0; d < g.days; d++ {
		for h := 1; h <= g.hoursPerDay; h++ {
			out = append(out, TimeSlot{Day: Day(d), Hour: h})
		}
	}
	return out
}

// ExpandTimeRange turns "3" or "1-3" into the listed hours. Invalid input yields nil.
func ExpandTimeRange(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		start := parseHour(parts[0])
		end := parseHour(parts[1])
		if start == 0 || end == 0 || end < start {
			return nil
		}
		hours := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			hours = append(hours, i)
		}
		return hours
	}
	if value := parseHour(raw); value != 0 {
		return []int{value}
	}
	return nil
}

func parseHour(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
