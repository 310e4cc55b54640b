package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedKey is returned for keys matching none of the known encodings.
var ErrMalformedKey = errors.New("scheduler: malformed schedule key")

// KeyFormat identifies which historical encoding a key was written in.
type KeyFormat int

const (
	// KeyFormatCanonical is teacherId-dayIndex-hourIndex, both indices 0-based.
	KeyFormatCanonical KeyFormat = iota + 1
	// KeyFormatDayHour is dayIndex-hourIndex without a teacher prefix.
	KeyFormatDayHour
	// KeyFormatDayName is DayName-Hour[-teacherId] with a 1-based hour.
	KeyFormatDayName
)

func (f KeyFormat) String() string {
	switch f {
	case KeyFormatCanonical:
		return "canonical"
	case KeyFormatDayHour:
		return "day-hour"
	case KeyFormatDayName:
		return "day-name"
	default:
		return "unknown"
	}
}

// ParsedKey is a decoded schedule key.
type ParsedKey struct {
	Format    KeyFormat
	TeacherID string
	Slot      TimeSlot
}

// Canonical re-encodes the key in the canonical format.
func (p ParsedKey) Canonical() string {
	return CanonicalKey(p.TeacherID, p.Slot)
}

// CanonicalKey builds teacherId-dayIndex-hourIndex for a slot.
func CanonicalKey(teacherID string, slot TimeSlot) string {
	return teacherID + "-" + strconv.Itoa(int(slot.Day)) + "-" + strconv.Itoa(slot.Hour-1)
}

// ParseKey decodes raw in any known encoding. fallbackTeacher supplies the teacher
// for encodings that do not carry one.
//
// A key that reads as a valid canonical key is canonical even when its teacher id
// starts with a day spelling, so "cuma-yilmaz-0-3" and "mon-1-2" keep their teacher.
func ParseKey(raw, fallbackTeacher string) (ParsedKey, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, "-")
	if len(parts) < 2 {
		return ParsedKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, raw)
	}

	if len(parts) >= 3 {
		if parsed, err := parseIndexed(parts, fallbackTeacher, raw); err == nil {
			return parsed, nil
		}
	}

	if day, ok := ParseDay(parts[0]); ok {
		hour, err := strconv.Atoi(parts[1])
		if err != nil {
			return ParsedKey{}, fmt.Errorf("%w: %q has no hour", ErrMalformedKey, raw)
		}
		teacher := strings.Join(parts[2:], "-")
		if teacher == "" {
			teacher = fallbackTeacher
		}
		return newParsedKey(KeyFormatDayName, teacher, TimeSlot{Day: day, Hour: hour}, raw)
	}

	return parseIndexed(parts, fallbackTeacher, raw)
}

func parseIndexed(parts []string, fallbackTeacher, raw string) (ParsedKey, error) {
	n := len(parts)
	dayIdx, dayErr := strconv.Atoi(parts[n-2])
	hourIdx, hourErr := strconv.Atoi(parts[n-1])
	if dayErr != nil || hourErr != nil {
		return ParsedKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, raw)
	}
	slot := TimeSlot{Day: Day(dayIdx), Hour: hourIdx + 1}
	if n == 2 {
		return newParsedKey(KeyFormatDayHour, fallbackTeacher, slot, raw)
	}
	return newParsedKey(KeyFormatCanonical, strings.Join(parts[:n-2], "-"), slot, raw)
}

func newParsedKey(format KeyFormat, teacher string, slot TimeSlot, raw string) (ParsedKey, error) {
	if teacher == "" {
		return ParsedKey{}, fmt.Errorf("%w: %q has no teacher", ErrMalformedKey, raw)
	}
	if !slot.Day.Valid() || slot.Hour < 1 || slot.Hour > MaxHoursPerDay {
		return ParsedKey{}, fmt.Errorf("%w: %q is outside the weekly grid", ErrMalformedKey, raw)
	}
	return ParsedKey{Format: format, TeacherID: teacher, Slot: slot}, nil
}

// sortKeys orders canonical keys by teacher, day and hour; unparseable keys sort last.
func sortKeys(keys []string) {
	type sortable struct {
		raw    string
		parsed ParsedKey
		ok     bool
	}
	items := make([]sortable, len(keys))
	for i, key := range keys {
		parsed, err := ParseKey(key, "")
		items[i] = sortable{raw: key, parsed: parsed, ok: err == nil}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return a.raw < b.raw
		}
		if a.parsed.TeacherID != b.parsed.TeacherID {
			return a.parsed.TeacherID < b.parsed.TeacherID
		}
		if a.parsed.Slot.Day != b.parsed.Slot.Day {
			return a.parsed.Slot.Day < b.parsed.Slot.Day
		}
		if a.parsed.Slot.Hour != b.parsed.Slot.Hour {
			return a.parsed.Slot.Hour < b.parsed.Slot.Hour
		}
		return a.raw < b.raw
	})
	for i := range items {
		keys[i] = items[i].raw
	}
}
