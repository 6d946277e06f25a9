package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/kidsched/internal/model"
)

// ServiceCallStore keeps a log of every service call the cards made.
type ServiceCallStore struct {
	db *sql.DB
}

func NewServiceCallStore(db *sql.DB) *ServiceCallStore {
	return &ServiceCallStore{db: db}
}

const serviceCallCols = `id, card_id, domain, service, payload, success, error, created_at`

func scanServiceCall(scanner interface{ Scan(...any) error }) (*model.ServiceCall, error) {
	var c model.ServiceCall
	var cardID sql.NullInt64
	var payload string
	var success int

	err := scanner.Scan(&c.ID, &cardID, &c.Domain, &c.Service, &payload, &success, &c.Error, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	if cardID.Valid {
		c.CardID = &cardID.Int64
	}
	c.Success = success != 0
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &c.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return &c, nil
}

// Record stores a call. A zero CreatedAt is stamped with the current time.
func (s *ServiceCallStore) Record(call model.ServiceCall) (*model.ServiceCall, error) {
	payload, err := encodeJSON(call.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var cardID sql.NullInt64
	if call.CardID != nil {
		cardID = sql.NullInt64{Int64: *call.CardID, Valid: true}
	}
	createdAt := call.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.Exec(
		`INSERT INTO service_calls (card_id, domain, service, payload, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cardID, call.Domain, call.Service, payload, boolInt(call.Success), call.Error, createdAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert service call: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+serviceCallCols+` FROM service_calls WHERE id = ?`, id)
	stored, err := scanServiceCall(row)
	if err != nil {
		return nil, fmt.Errorf("get service call: %w", err)
	}
	return stored, nil
}

// ListRecent returns up to limit calls, newest first.
func (s *ServiceCallStore) ListRecent(limit int) ([]model.ServiceCall, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+serviceCallCols+` FROM service_calls ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list service calls: %w", err)
	}
	defer rows.Close()

	var calls []model.ServiceCall
	for rows.Next() {
		c, err := scanServiceCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service call: %w", err)
		}
		calls = append(calls, *c)
	}
	return calls, rows.Err()
}

// DeleteOlderThan removes calls recorded before cutoff and reports how many
// were removed.
func (s *ServiceCallStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM service_calls WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old service calls: %w", err)
	}
	return result.RowsAffected()
}
