package scheduler

import (
	"encoding/json"
	"fmt"
)

// Row is one stored (key, entry) pair. It encodes as the JSON array [key, entry].
type Row struct {
	Key   string
	Entry ScheduledEntry
}

func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{r.Key, r.Entry})
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("row is not an array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("row has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.Key); err != nil {
		return fmt.Errorf("row key: %w", err)
	}
	if err := json.Unmarshal(pair[1], &r.Entry); err != nil {
		return fmt.Errorf("row entry: %w", err)
	}
	return nil
}

// Serialize flattens a schedule into rows ordered by teacher, day and hour.
func Serialize(s Schedule) []Row {
	rows := make([]Row, 0, len(s))
	for _, key := range s.Keys() {
		rows = append(rows, Row{Key: key, Entry: s[key].clone()})
	}
	return rows
}

// DecodeRows parses a stored row list. Only a document that is not a JSON array is
// an error; individual malformed rows are skipped with a warning.
func DecodeRows(data []byte) ([]Row, []Warning, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode schedule rows: %w", err)
	}
	rows := make([]Row, 0, len(raw))
	var warnings []Warning
	for i, item := range raw {
		var row Row
		if err := json.Unmarshal(item, &row); err != nil {
			warnings = append(warnings, warnf(WarningStore, fmt.Sprintf("row %d", i), "skipped: %v", err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, warnings, nil
}

// Deserialize rebuilds a schedule from rows, normalising every key to the canonical
// encoding. Rows that collapse onto an already seen key are discarded.
func Deserialize(rows []Row) (Schedule, []Warning) {
	schedule := make(Schedule, len(rows))
	var warnings []Warning
	for i, row := range rows {
		subject := fmt.Sprintf("row %d (%s)", i, row.Key)
		if row.Entry.LessonID == "" {
			warnings = append(warnings, warnf(WarningStore, subject, "skipped: entry has no lesson id"))
			continue
		}
		parsed, err := ParseKey(row.Key, row.Entry.PrimaryTeacher())
		if err != nil {
			warnings = append(warnings, warnf(WarningStore, subject, "skipped: %v", err))
			continue
		}
		key := parsed.Canonical()
		if _, exists := schedule[key]; exists {
			warnings = append(warnings, warnf(WarningStore, subject, "discarded duplicate of %s", key))
			continue
		}
		entry := row.Entry.clone()
		entry.Key = key
		entry.TeacherIDs = withPrimary(entry.TeacherIDs, parsed.TeacherID)
		schedule[key] = entry
	}
	return schedule, warnings
}

// Marshal encodes a schedule as its stored row list.
func Marshal(s Schedule) ([]byte, error) {
	return json.Marshal(Serialize(s))
}

// Unmarshal decodes a stored row list into a schedule.
func Unmarshal(data []byte) (Schedule, []Warning, error) {
	rows, warnings, err := DecodeRows(data)
	if err != nil {
		return nil, nil, err
	}
	schedule, more := Deserialize(rows)
	return schedule, append(warnings, more...), nil
}

func withPrimary(ids []string, primary string) []string {
	for i, id := range ids {
		if id != primary {
			continue
		}
		if i == 0 {
			return ids
		}
		out := make([]string, 0, len(ids))
		out = append(out, primary)
		out = append(out, ids[:i]...)
		return append(out, ids[i+1:]...)
	}
	return append([]string{primary}, ids...)
}
