package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/kidsched/internal/card"
	"github.com/dukerupert/kidsched/internal/model"
	"github.com/dukerupert/kidsched/internal/session"
	"github.com/dukerupert/kidsched/internal/store"
	"github.com/dukerupert/kidsched/internal/viewer"
)

const pageTitle = "Kids Schedule"

// CardViewHandler serves card pages, partials and actions.
type CardViewHandler struct {
	cards     *store.CardStore
	sessions  *session.Manager
	templates *template.Template
	logger    *slog.Logger
}

func NewCardViewHandler(cs *store.CardStore, sessions *session.Manager, templates *template.Template, logger *slog.Logger) *CardViewHandler {
	return &CardViewHandler{cards: cs, sessions: sessions, templates: templates, logger: logger}
}

// Dashboard renders every configured card for the viewer.
func (h *CardViewHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	defs, err := h.cards.List()
	if err != nil {
		h.logger.Error("list cards", "error", err)
		http.Error(w, "failed to load cards", http.StatusInternalServerError)
		return
	}

	viewerID := viewer.ID(r.Context())
	cards := make([]template.HTML, 0, len(defs))
	for _, def := range defs {
		out, err := h.sessions.Card(viewerID, def).Render()
		if err != nil {
			h.logger.Error("render card", "id", def.ID, "error", err)
			http.Error(w, "failed to render card", http.StatusInternalServerError)
			return
		}
		cards = append(cards, out)
	}

	h.renderPage(w, map[string]any{"Title": pageTitle, "Cards": cards})
}

// Page renders a single card on its own page.
func (h *CardViewHandler) Page(w http.ResponseWriter, r *http.Request) {
	c, def, ok := h.card(w, r)
	if !ok {
		return
	}
	out, err := c.Render()
	if err != nil {
		h.logger.Error("render card", "id", def.ID, "error", err)
		http.Error(w, "failed to render card", http.StatusInternalServerError)
		return
	}
	h.renderPage(w, map[string]any{
		"Title":  def.Title + " · " + pageTitle,
		"Cards":  []template.HTML{out},
		"Single": true,
	})
}

// Partial renders the card markup alone, for HTMX swaps.
func (h *CardViewHandler) Partial(w http.ResponseWriter, r *http.Request) {
	c, def, ok := h.card(w, r)
	if !ok {
		return
	}
	h.renderCard(w, c, def)
}

// Action applies a user interaction and returns the re-rendered card.
func (h *CardViewHandler) Action(w http.ResponseWriter, r *http.Request) {
	c, def, ok := h.card(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	ev := card.Event{
		Action:    card.Action(r.PathValue("action")),
		RoutineID: r.FormValue("routine_id"),
		TaskIndex: -1,
		Day:       r.FormValue("day"),
	}
	if s := r.FormValue("task_index"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			ev.TaskIndex = n
		}
	}

	if err := c.Dispatch(r.Context(), ev); err != nil {
		if errors.Is(err, card.ErrUnknownAction) {
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}
		h.logger.Error("dispatch card action", "id", def.ID, "action", ev.Action, "error", err)
		http.Error(w, "action failed", http.StatusInternalServerError)
		return
	}

	h.renderCard(w, c, def)
}

// card resolves the {id} path value to the viewer's card instance. It writes
// the error response itself and reports whether the caller may continue.
func (h *CardViewHandler) card(w http.ResponseWriter, r *http.Request) (*card.Card, model.CardDefinition, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, model.CardDefinition{}, false
	}
	def, err := h.cards.GetByID(id)
	if err != nil {
		h.logger.Error("get card", "id", id, "error", err)
		http.Error(w, "failed to load card", http.StatusInternalServerError)
		return nil, model.CardDefinition{}, false
	}
	if def == nil {
		http.Error(w, "card not found", http.StatusNotFound)
		return nil, model.CardDefinition{}, false
	}
	return h.sessions.Card(viewer.ID(r.Context()), *def), *def, true
}

func (h *CardViewHandler) renderCard(w http.ResponseWriter, c *card.Card, def model.CardDefinition) {
	out, err := c.Render()
	if err != nil {
		h.logger.Error("render card", "id", def.ID, "error", err)
		http.Error(w, "failed to render card", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

func (h *CardViewHandler) renderPage(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "layout", data); err != nil {
		h.logger.Error("render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}
