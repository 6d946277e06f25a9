package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/kidsched/internal/card"
	"github.com/dukerupert/kidsched/internal/config"
	"github.com/dukerupert/kidsched/internal/handler"
	"github.com/dukerupert/kidsched/internal/middleware"
	"github.com/dukerupert/kidsched/internal/model"
	"github.com/dukerupert/kidsched/internal/session"
	"github.com/dukerupert/kidsched/internal/store"
	ws "github.com/dukerupert/kidsched/internal/websocket"
	"github.com/dukerupert/kidsched/web"
)

const (
	defaultActionLimit = 120
	actionWindow       = time.Minute
)

// Host is the home automation host the cards run against.
type Host interface {
	card.Host
	Connected() bool
}

type Options struct {
	Location    *time.Location
	SettleDelay time.Duration
	// OriginPatterns are extra origins allowed to open the browser websocket.
	OriginPatterns []string
	SecureCookies  bool
	// ActionLimit caps card actions per viewer per minute.
	ActionLimit int
}

type Server struct {
	host        Host
	opts        Options
	cardStore   *store.CardStore
	callStore   *store.ServiceCallStore
	sessions    *session.Manager
	hub         *ws.Hub
	index       *entityIndex
	cardViewH   *handler.CardViewHandler
	cardAPIH    *handler.CardAPIHandler
	metaH       *handler.MetaHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, host Host, opts Options, logger *slog.Logger) *Server {
	if opts.ActionLimit <= 0 {
		opts.ActionLimit = defaultActionLimit
	}

	s := &Server{
		host:        host,
		opts:        opts,
		cardStore:   store.NewCardStore(db),
		callStore:   store.NewServiceCallStore(db),
		hub:         ws.NewHub(logger.With("component", "websocket")),
		index:       newEntityIndex(),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}

	s.sessions = session.NewManager(host, session.Options{
		Location:    opts.Location,
		SettleDelay: opts.SettleDelay,
		Logger:      logger.With("component", "card"),
		Record:      s.recordCall,
	})
	s.cardViewH = handler.NewCardViewHandler(s.cardStore, s.sessions, web.Templates(), logger.With("component", "card_view"))
	s.cardAPIH = handler.NewCardAPIHandler(s.cardStore, s.sessions, s.hub, s.refreshIndex, logger.With("component", "card_api"))
	s.metaH = handler.NewMetaHandler(s.callStore, logger.With("component", "meta"))

	s.refreshIndex()
	return s
}

// Hub returns the browser websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// SeedDefault creates the first card from cfg when no cards exist.
func (s *Server) SeedDefault(cfg config.CardConfig) (*model.CardDefinition, error) {
	def, err := s.cardStore.SeedDefault(cfg)
	if err != nil {
		return nil, err
	}
	if def != nil {
		s.refreshIndex()
	}
	return def, nil
}

// EntityChanged tells browsers showing cards bound to entityID to refresh.
func (s *Server) EntityChanged(entityID string) {
	ids := s.index.lookup(entityID)
	if len(ids) == 0 {
		return
	}
	s.hub.Broadcast(ws.EntityUpdated(entityID, ids))
}

// Cleanup drops idle card instances, expired rate-limit entries and service
// call records older than keepCalls.
func (s *Server) Cleanup(maxIdle, keepCalls time.Duration) {
	if n := s.sessions.Cleanup(maxIdle); n > 0 {
		s.logger.Debug("dropped idle card instances", "count", n)
	}
	s.rateLimiter.Cleanup()
	n, err := s.callStore.DeleteOlderThan(time.Now().Add(-keepCalls))
	if err != nil {
		s.logger.Error("cleanup service calls", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("deleted old service calls", "count", n)
	}
}

func (s *Server) recordCall(ctx context.Context, call model.ServiceCall) {
	if _, err := s.callStore.Record(call); err != nil {
		s.logger.Error("record service call", "service", call.Service, "error", err)
	}
}

func (s *Server) refreshIndex() {
	defs, err := s.cardStore.List()
	if err != nil {
		s.logger.Error("refresh entity index", "error", err)
		return
	}
	s.index.rebuild(defs)
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.opts.OriginPatterns, s.logger.With("component", "websocket")))

	// Pages
	mux.HandleFunc("GET /", s.cardViewH.Dashboard)
	mux.HandleFunc("GET /cards/{id}", s.cardViewH.Page)

	// Card partials (HTMX)
	mux.HandleFunc("GET /partials/cards/{id}", s.cardViewH.Partial)
	mux.HandleFunc("POST /partials/cards/{id}/actions/{action}", s.rateLimitedHandler(s.cardViewH.Action))

	// Card API
	mux.HandleFunc("GET /api/cards", s.cardAPIH.List)
	mux.HandleFunc("POST /api/cards", s.cardAPIH.Create)
	mux.HandleFunc("GET /api/cards/{id}", s.cardAPIH.Get)
	mux.HandleFunc("PUT /api/cards/{id}", s.cardAPIH.Update)
	mux.HandleFunc("DELETE /api/cards/{id}", s.cardAPIH.Delete)
	mux.HandleFunc("GET /api/card-types", s.metaH.CardTypes)
	mux.HandleFunc("GET /api/service-calls", s.metaH.ServiceCalls)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return middleware.Viewer(s.opts.SecureCookies)(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"host_connected": s.host.Connected(),
		"browsers":       s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ViewerKey, s.opts.ActionLimit, actionWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
