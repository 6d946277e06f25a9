package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/kidsched/internal/config"
	"github.com/dukerupert/kidsched/internal/model"
)

type CardStore struct {
	db *sql.DB
}

func NewCardStore(db *sql.DB) *CardStore {
	return &CardStore{db: db}
}

const cardCols = `id, entity, title, show_progress, show_images, show_time, theme, extra, created_at, updated_at`

func scanCard(scanner interface{ Scan(...any) error }) (*model.CardDefinition, error) {
	var c model.CardDefinition
	var showProgress, showImages, showTime int
	var extra string

	err := scanner.Scan(
		&c.ID, &c.Entity, &c.Title, &showProgress, &showImages, &showTime,
		&c.Theme, &extra, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ShowProgress = showProgress != 0
	c.ShowImages = showImages != 0
	c.ShowTime = showTime != 0
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &c.Extra); err != nil {
			return nil, fmt.Errorf("decode extra: %w", err)
		}
	}
	return &c, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeJSON(v map[string]any) (string, error) {
	if len(v) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *CardStore) Create(cfg config.CardConfig) (*model.CardDefinition, error) {
	extra, err := encodeJSON(cfg.Extra)
	if err != nil {
		return nil, fmt.Errorf("encode extra: %w", err)
	}

	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO cards (entity, title, show_progress, show_images, show_time, theme, extra, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.Entity, cfg.Title, boolInt(cfg.ShowProgress), boolInt(cfg.ShowImages), boolInt(cfg.ShowTime),
		cfg.Theme, extra, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID returns the card, or nil when it does not exist.
func (s *CardStore) GetByID(id int64) (*model.CardDefinition, error) {
	row := s.db.QueryRow(`SELECT `+cardCols+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// List returns all cards in dashboard order.
func (s *CardStore) List() ([]model.CardDefinition, error) {
	rows, err := s.db.Query(`SELECT ` + cardCols + ` FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []model.CardDefinition
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

// Update replaces the card configuration. It returns nil when the card does
// not exist.
func (s *CardStore) Update(id int64, cfg config.CardConfig) (*model.CardDefinition, error) {
	extra, err := encodeJSON(cfg.Extra)
	if err != nil {
		return nil, fmt.Errorf("encode extra: %w", err)
	}

	result, err := s.db.Exec(
		`UPDATE cards SET entity = ?, title = ?, show_progress = ?, show_images = ?, show_time = ?,
		 theme = ?, extra = ?, updated_at = ? WHERE id = ?`,
		cfg.Entity, cfg.Title, boolInt(cfg.ShowProgress), boolInt(cfg.ShowImages), boolInt(cfg.ShowTime),
		cfg.Theme, extra, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

func (s *CardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

func (s *CardStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

// SeedDefault creates a card from cfg when no cards exist yet. It returns
// the created card, or nil when the table was not empty.
func (s *CardStore) SeedDefault(cfg config.CardConfig) (*model.CardDefinition, error) {
	n, err := s.Count()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, nil
	}
	return s.Create(cfg)
}
