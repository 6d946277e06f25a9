package config

import (
	"errors"
	"strings"

	"github.com/dukerupert/kidsched/internal/model"
)

const (
	DefaultTitle = "My Schedule"
	DefaultTheme = "default"
)

// ErrMissingEntity is returned when a card configuration has no entity.
var ErrMissingEntity = errors.New("Please define an entity")

// CardConfig is the configuration surface of a card.
type CardConfig struct {
	Entity       string         `json:"entity"`
	Title        string         `json:"title"`
	ShowProgress bool           `json:"show_progress"`
	ShowImages   bool           `json:"show_images"`
	ShowTime     bool           `json:"show_time"`
	Theme        string         `json:"theme"`
	Extra        map[string]any `json:"extra,omitempty"`
}

var knownKeys = map[string]bool{
	"type":          true,
	"entity":        true,
	"title":         true,
	"show_progress": true,
	"show_images":   true,
	"show_time":     true,
	"theme":         true,
}

// ParseCardConfig builds a CardConfig from raw key/value configuration as a
// dashboard editor supplies it. Flags are on unless explicitly false; keys the
// card does not know are kept in Extra.
func ParseCardConfig(raw map[string]any) (CardConfig, error) {
	entity, _ := raw["entity"].(string)
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return CardConfig{}, ErrMissingEntity
	}

	cfg := CardConfig{
		Entity:       entity,
		Title:        stringOr(raw["title"], DefaultTitle),
		ShowProgress: raw["show_progress"] != false,
		ShowImages:   raw["show_images"] != false,
		ShowTime:     raw["show_time"] != false,
		Theme:        stringOr(raw["theme"], DefaultTheme),
	}

	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]any)
		}
		cfg.Extra[k] = v
	}
	return cfg, nil
}

// Validate checks an already structured config and fills in defaults.
func (c *CardConfig) Validate() error {
	c.Entity = strings.TrimSpace(c.Entity)
	if c.Entity == "" {
		return ErrMissingEntity
	}
	if strings.TrimSpace(c.Title) == "" {
		c.Title = DefaultTitle
	}
	if strings.TrimSpace(c.Theme) == "" {
		c.Theme = DefaultTheme
	}
	return nil
}

// WeeklyEntityID derives the weekly sensor id from the daily one.
func WeeklyEntityID(entity string) string {
	return strings.Replace(entity, "_daily", "_weekly", 1)
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

// FromDefinition returns the configuration of a stored card.
func FromDefinition(def model.CardDefinition) CardConfig {
	return CardConfig{
		Entity:       def.Entity,
		Title:        def.Title,
		ShowProgress: def.ShowProgress,
		ShowImages:   def.ShowImages,
		ShowTime:     def.ShowTime,
		Theme:        def.Theme,
		Extra:        def.Extra,
	}
}
