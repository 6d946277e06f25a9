package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Attribute values come from hand-written host configuration, so scalar
// fields accept any JSON type and fall back to the zero value.

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 't', 'f':
		return string(raw)
	case 'n', '{', '[':
		return ""
	default:
		if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}

func looseFloat(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		s = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func looseInt(raw json.RawMessage) int {
	return int(math.Round(looseFloat(raw)))
}

func looseBool(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 't':
		return true
	case '"':
		b, _ := strconv.ParseBool(looseString(raw))
		return b
	case 'f', 'n', '{', '[':
		return false
	default:
		return looseFloat(raw) != 0
	}
}

func looseTimestamp(raw json.RawMessage) Timestamp {
	var ts Timestamp
	if len(raw) > 0 {
		ts.UnmarshalJSON(raw)
	}
	return ts
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title     json.RawMessage `json:"title"`
		Completed json.RawMessage `json:"completed"`
		Image     json.RawMessage `json:"image"`
		Duration  json.RawMessage `json:"duration"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task{
		Title:     looseString(raw.Title),
		Completed: looseBool(raw.Completed),
		Image:     looseString(raw.Image),
		Duration:  looseFloat(raw.Duration),
	}
	return nil
}

func (r *Routine) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage   `json:"id"`
		Title     json.RawMessage   `json:"title"`
		StartTime json.RawMessage   `json:"start_time"`
		EndTime   json.RawMessage   `json:"end_time"`
		IsCurrent json.RawMessage   `json:"is_current"`
		Completed json.RawMessage   `json:"completed"`
		Total     json.RawMessage   `json:"total"`
		Progress  json.RawMessage   `json:"progress"`
		Tasks     []json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Routine{
		ID:        looseString(raw.ID),
		Title:     looseString(raw.Title),
		StartTime: looseTimestamp(raw.StartTime),
		EndTime:   looseTimestamp(raw.EndTime),
		IsCurrent: looseBool(raw.IsCurrent),
		Completed: looseInt(raw.Completed),
		Total:     looseInt(raw.Total),
		Progress:  looseInt(raw.Progress),
	}
	for _, tr := range raw.Tasks {
		var t Task
		if err := json.Unmarshal(tr, &t); err != nil {
			// Keep the slot so task indexes still match the host's list.
			t = Task{}
		}
		r.Tasks = append(r.Tasks, t)
	}
	return nil
}

func (r *RoutineRef) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Title     json.RawMessage `json:"title"`
		StartTime json.RawMessage `json:"start_time"`
		EndTime   json.RawMessage `json:"end_time"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = RoutineRef{
		ID:        looseString(raw.ID),
		Title:     looseString(raw.Title),
		StartTime: looseTimestamp(raw.StartTime),
		EndTime:   looseTimestamp(raw.EndTime),
	}
	return nil
}

func (r *WeeklyRoutine) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Title     json.RawMessage `json:"title"`
		StartTime json.RawMessage `json:"start_time"`
		EndTime   json.RawMessage `json:"end_time"`
		TaskCount json.RawMessage `json:"task_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = WeeklyRoutine{
		ID:        looseString(raw.ID),
		Title:     looseString(raw.Title),
		StartTime: looseTimestamp(raw.StartTime),
		EndTime:   looseTimestamp(raw.EndTime),
		TaskCount: looseInt(raw.TaskCount),
	}
	return nil
}
