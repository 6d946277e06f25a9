package session

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dukerupert/kidsched/internal/card"
	"github.com/dukerupert/kidsched/internal/config"
	"github.com/dukerupert/kidsched/internal/model"
)

// Options configure the card instances a Manager creates.
type Options struct {
	Location    *time.Location
	SettleDelay time.Duration
	Logger      *slog.Logger
	// Record receives every service call made by any card instance.
	Record func(ctx context.Context, call model.ServiceCall)
	Now    func() time.Time
}

type key struct {
	viewerID string
	cardID   int64
}

type instance struct {
	card     *card.Card
	defAt    time.Time
	lastSeen time.Time
}

// Manager holds one card instance per viewer and card. An instance carries
// the viewer's view state; dropping it resets that viewer to the daily view.
type Manager struct {
	host card.Host
	opts Options

	mu        sync.Mutex
	instances map[key]*instance
}

func NewManager(host card.Host, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		host:      host,
		opts:      opts,
		instances: make(map[key]*instance),
	}
}

// Card returns the viewer's instance of def, creating it on first use. When
// def changed since the instance was created its config is refreshed.
func (m *Manager) Card(viewerID string, def model.CardDefinition) *card.Card {
	k := key{viewerID: viewerID, cardID: def.ID}
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[k]
	if !ok {
		inst = &instance{card: m.newCard(def), defAt: def.UpdatedAt}
		m.instances[k] = inst
	} else if !inst.defAt.Equal(def.UpdatedAt) {
		inst.card.SetConfig(config.FromDefinition(def))
		inst.defAt = def.UpdatedAt
	}
	inst.lastSeen = now
	return inst.card
}

func (m *Manager) newCard(def model.CardDefinition) *card.Card {
	cardID := def.ID
	id := strconv.FormatInt(cardID, 10)

	opts := card.Options{
		ID:          id,
		Base:        "/partials/cards/" + id,
		Location:    m.opts.Location,
		SettleDelay: m.opts.SettleDelay,
		Now:         m.opts.Now,
		Logger:      m.opts.Logger.With("card_id", cardID),
	}
	if m.opts.Record != nil {
		record := m.opts.Record
		opts.OnCall = func(ctx context.Context, call model.ServiceCall) {
			call.CardID = &cardID
			record(ctx, call)
		}
	}
	return card.New(config.FromDefinition(def), m.host, opts)
}

// Forget drops every viewer's instance of a card.
func (m *Manager) Forget(cardID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.instances {
		if k.cardID == cardID {
			delete(m.instances, k)
		}
	}
}

// Cleanup drops instances not used within maxIdle and returns how many were
// dropped.
func (m *Manager) Cleanup(maxIdle time.Duration) int {
	cutoff := m.opts.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, inst := range m.instances {
		if inst.lastSeen.Before(cutoff) {
			delete(m.instances, k)
			n++
		}
	}
	return n
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}
