package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type Task struct {
	Title     string  `json:"title"`
	Completed bool    `json:"completed"`
	Image     string  `json:"image,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

type Routine struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime Timestamp `json:"start_time"`
	EndTime   Timestamp `json:"end_time"`
	IsCurrent bool      `json:"is_current"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Progress  int       `json:"progress"`
	Tasks     []Task    `json:"tasks"`
}

// IsComplete reports whether every task of the routine is done.
func (r Routine) IsComplete() bool {
	return r.Completed == r.Total
}

// ProgressPercent returns completed/total as a percentage, 0 for an empty routine.
func (r Routine) ProgressPercent() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Completed) / float64(r.Total) * 100
}

// RoutineRef is the short form the host uses for current_routine and next_routine.
type RoutineRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime Timestamp `json:"start_time"`
	EndTime   Timestamp `json:"end_time"`
}

type WeeklyRoutine struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime Timestamp `json:"start_time"`
	EndTime   Timestamp `json:"end_time"`
	TaskCount int       `json:"task_count"`
}

// WeeklySchedule maps an ISO date (YYYY-MM-DD) to that day's routines.
type WeeklySchedule map[string][]WeeklyRoutine

// Timestamp is a host timestamp. The zero value means absent or unparseable.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO 8601 timestamp as the host emits it.
// Timestamps without an offset are read in loc.
func ParseTimestamp(s string, loc *time.Location) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	return Timestamp{}, false
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Non-string timestamps are treated as absent.
		*t = Timestamp{}
		return nil
	}
	ts, _ := ParseTimestamp(s, time.Local)
	*t = ts
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
