package card

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/kidsched/internal/config"
	"github.com/dukerupert/kidsched/internal/model"
	"github.com/dukerupert/kidsched/internal/registry"
)

const (
	Type        = "kids-schedule-card"
	Name        = "Kids Schedule Card"
	Description = "Child-friendly schedule card with task tracking"
	Version     = "1.0.0"

	// Size is the layout size hint the card reports to the dashboard.
	Size = 6

	DefaultSettleDelay = 500 * time.Millisecond
)

const (
	noticeToggleFailed = "Couldn't update the task. Please try again."
	noticeResetFailed  = "Couldn't reset the routine. Please try again."
)

var ErrUnknownAction = errors.New("unknown card action")

func init() {
	registry.Register(registry.CardType{
		Type:        Type,
		Name:        Name,
		Description: Description,
		Preview:     true,
		Version:     Version,
	})
}

// Host is the dashboard platform the card reads state from and calls
// services on.
type Host interface {
	State(entityID string) (model.EntityState, bool)
	CallService(ctx context.Context, domain, service string, data map[string]any) error
}

// ChangeNotifier is implemented by hosts that signal when an entity has been
// updated. The card uses it to settle after a service call instead of only
// waiting out the fixed delay.
type ChangeNotifier interface {
	Changed(entityID string) (<-chan struct{}, func())
}

// Options tune a card instance. Zero values pick sensible defaults.
type Options struct {
	// ID identifies the card in the page markup.
	ID string
	// Base is the URL prefix card actions are posted under.
	Base        string
	Location    *time.Location
	SettleDelay time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
	// OnCall observes every outbound service call and its outcome.
	OnCall func(ctx context.Context, call model.ServiceCall)
}

// Card is one card instance as seen by one viewer.
type Card struct {
	host Host
	opts Options

	mu   sync.Mutex
	cfg  config.CardConfig
	view model.ViewState
}

// New creates a card in the daily view.
func New(cfg config.CardConfig, host Host, opts Options) *Card {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Card{
		host: host,
		opts: opts,
		cfg:  cfg,
		view: model.ViewState{Mode: model.ViewDaily},
	}
}

// SetConfig replaces the card configuration. The view state is kept.
func (c *Card) SetConfig(cfg config.CardConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Card) Config() config.CardConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// View returns a copy of the current view state.
func (c *Card) View() model.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// CardSize reports the layout size hint.
func (c *Card) CardSize() int {
	return Size
}
