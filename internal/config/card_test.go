package config

import (
	"errors"
	"testing"

	"github.com/dukerupert/kidsched/internal/model"
)

func TestParseCardConfigDefaults(t *testing.T) {
	cfg, err := ParseCardConfig(map[string]any{"entity": "sensor.kids_daily"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Entity != "sensor.kids_daily" {
		t.Errorf("entity = %q", cfg.Entity)
	}
	if cfg.Title != "My Schedule" {
		t.Errorf("title = %q, want %q", cfg.Title, "My Schedule")
	}
	if !cfg.ShowProgress || !cfg.ShowImages || !cfg.ShowTime {
		t.Errorf("flags should default to true: %+v", cfg)
	}
	if cfg.Theme != "default" {
		t.Errorf("theme = %q, want default", cfg.Theme)
	}
	if cfg.Extra != nil {
		t.Errorf("extra = %v, want nil", cfg.Extra)
	}
}

func TestParseCardConfigMissingEntity(t *testing.T) {
	for _, raw := range []map[string]any{
		{},
		{"entity": ""},
		{"entity": "   "},
		{"entity": 42},
		{"title": "Schedule"},
	} {
		if _, err := ParseCardConfig(raw); !errors.Is(err, ErrMissingEntity) {
			t.Errorf("ParseCardConfig(%v) err = %v, want ErrMissingEntity", raw, err)
		}
	}
}

func TestParseCardConfigOverrides(t *testing.T) {
	cfg, err := ParseCardConfig(map[string]any{
		"type":          "custom:kids-schedule-card",
		"entity":        "sensor.kids_daily",
		"title":         "Emma's Day",
		"show_progress": false,
		"show_images":   "no",
		"show_time":     false,
		"theme":         "dark",
		"columns":       2,
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Title != "Emma's Day" {
		t.Errorf("title = %q", cfg.Title)
	}
	if cfg.ShowProgress || cfg.ShowTime {
		t.Errorf("explicit false flags should disable: %+v", cfg)
	}
	if !cfg.ShowImages {
		t.Error("only an explicit false disables a flag")
	}
	if cfg.Theme != "dark" {
		t.Errorf("theme = %q", cfg.Theme)
	}
	if cfg.Extra["columns"] != 2 {
		t.Errorf("unknown keys should pass through, extra = %v", cfg.Extra)
	}
	if _, ok := cfg.Extra["type"]; ok {
		t.Error("type is a known key and should not land in extra")
	}
}

func TestValidate(t *testing.T) {
	cfg := CardConfig{Entity: " sensor.kids_daily "}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Entity != "sensor.kids_daily" || cfg.Title != DefaultTitle || cfg.Theme != DefaultTheme {
		t.Errorf("unexpected config after validate: %+v", cfg)
	}

	empty := CardConfig{}
	if err := empty.Validate(); !errors.Is(err, ErrMissingEntity) {
		t.Errorf("validate empty err = %v", err)
	}
}

func TestWeeklyEntityID(t *testing.T) {
	tests := map[string]string{
		"sensor.kids_schedule_daily":       "sensor.kids_schedule_weekly",
		"sensor.emma_daily":                "sensor.emma_weekly",
		"sensor.routines":                  "sensor.routines",
		"sensor.kids_daily_schedule_daily": "sensor.kids_weekly_schedule_daily",
	}
	for in, want := range tests {
		if got := WeeklyEntityID(in); got != want {
			t.Errorf("WeeklyEntityID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromDefinition(t *testing.T) {
	def := model.CardDefinition{
		ID:         4,
		Entity:     "sensor.max_daily",
		Title:      "Max",
		ShowImages: true,
		Theme:      "dark",
		Extra:      map[string]any{"grid_options": "wide"},
	}
	cfg := FromDefinition(def)
	if cfg.Entity != def.Entity || cfg.Title != def.Title || cfg.Theme != def.Theme {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ShowProgress || !cfg.ShowImages || cfg.ShowTime {
		t.Errorf("flags = %v/%v/%v", cfg.ShowProgress, cfg.ShowImages, cfg.ShowTime)
	}
	if cfg.Extra["grid_options"] != "wide" {
		t.Errorf("extra = %v", cfg.Extra)
	}
}
