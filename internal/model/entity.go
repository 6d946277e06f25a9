package model

import (
	"encoding/json"
	"time"
)

// EntityState is one entity as mirrored from the host.
type EntityState struct {
	EntityID    string          `json:"entity_id"`
	State       string          `json:"state"`
	Attributes  json.RawMessage `json:"attributes"`
	LastUpdated time.Time       `json:"last_updated"`
}

// DailyAttributes is the attribute set of a daily schedule sensor.
type DailyAttributes struct {
	Routines       []Routine   `json:"routines"`
	CurrentRoutine *RoutineRef `json:"current_routine"`
	NextRoutine    *RoutineRef `json:"next_routine"`
}

// WeeklyAttributes is the attribute set of a weekly schedule sensor.
type WeeklyAttributes struct {
	WeeklySchedule WeeklySchedule `json:"weekly_schedule"`
}

// Daily decodes the daily attributes. A routine that cannot be decoded is
// skipped; the rest of the set survives. Missing attributes yield an empty set.
func (e EntityState) Daily() DailyAttributes {
	var attrs DailyAttributes
	var raw struct {
		Routines       json.RawMessage `json:"routines"`
		CurrentRoutine json.RawMessage `json:"current_routine"`
		NextRoutine    json.RawMessage `json:"next_routine"`
	}
	if len(e.Attributes) == 0 || json.Unmarshal(e.Attributes, &raw) != nil {
		return attrs
	}

	var items []json.RawMessage
	if json.Unmarshal(raw.Routines, &items) == nil {
		for _, item := range items {
			var r Routine
			if err := json.Unmarshal(item, &r); err != nil {
				continue
			}
			attrs.Routines = append(attrs.Routines, r)
		}
	}
	attrs.CurrentRoutine = decodeRef(raw.CurrentRoutine)
	attrs.NextRoutine = decodeRef(raw.NextRoutine)
	return attrs
}

func decodeRef(raw json.RawMessage) *RoutineRef {
	if len(raw) == 0 {
		return nil
	}
	var ref *RoutineRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil
	}
	return ref
}

// Weekly decodes the weekly attributes. Days and routines that cannot be
// decoded are skipped.
func (e EntityState) Weekly() WeeklyAttributes {
	var attrs WeeklyAttributes
	var raw struct {
		WeeklySchedule map[string]json.RawMessage `json:"weekly_schedule"`
	}
	if len(e.Attributes) == 0 || json.Unmarshal(e.Attributes, &raw) != nil {
		return attrs
	}
	if raw.WeeklySchedule == nil {
		return attrs
	}

	attrs.WeeklySchedule = make(WeeklySchedule, len(raw.WeeklySchedule))
	for day, dayRaw := range raw.WeeklySchedule {
		var items []json.RawMessage
		if json.Unmarshal(dayRaw, &items) != nil {
			continue
		}
		routines := make([]WeeklyRoutine, 0, len(items))
		for _, item := range items {
			var r WeeklyRoutine
			if err := json.Unmarshal(item, &r); err != nil {
				continue
			}
			routines = append(routines, r)
		}
		attrs.WeeklySchedule[day] = routines
	}
	return attrs
}

// FindRoutine returns the routine with the given id from the daily attributes.
func (a DailyAttributes) FindRoutine(id string) (Routine, bool) {
	for _, r := range a.Routines {
		if r.ID == id {
			return r, true
		}
	}
	return Routine{}, false
}
