package model

import "time"

// CardDefinition is a card placed on the dashboard, as stored.
type CardDefinition struct {
	ID           int64          `json:"id"`
	Entity       string         `json:"entity"`
	Title        string         `json:"title"`
	ShowProgress bool           `json:"show_progress"`
	ShowImages   bool           `json:"show_images"`
	ShowTime     bool           `json:"show_time"`
	Theme        string         `json:"theme"`
	Extra        map[string]any `json:"extra,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ServiceCall struct {
	ID        int64          `json:"id"`
	CardID    *int64         `json:"card_id"`
	Domain    string         `json:"domain"`
	Service   string         `json:"service"`
	Payload   map[string]any `json:"payload"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
