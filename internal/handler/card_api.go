package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/kidsched/internal/card"
	"github.com/dukerupert/kidsched/internal/config"
	"github.com/dukerupert/kidsched/internal/model"
	"github.com/dukerupert/kidsched/internal/session"
	"github.com/dukerupert/kidsched/internal/store"
	"github.com/dukerupert/kidsched/internal/websocket"
)

// CardAPIHandler manages card definitions over JSON.
type CardAPIHandler struct {
	cards    *store.CardStore
	sessions *session.Manager
	hub      *websocket.Hub
	onChange func()
	logger   *slog.Logger
}

// NewCardAPIHandler creates the handler. onChange, when non-nil, runs after
// every successful create, update or delete.
func NewCardAPIHandler(cs *store.CardStore, sessions *session.Manager, hub *websocket.Hub, onChange func(), logger *slog.Logger) *CardAPIHandler {
	return &CardAPIHandler{cards: cs, sessions: sessions, hub: hub, onChange: onChange, logger: logger}
}

type cardResponse struct {
	model.CardDefinition
	Type     string `json:"type"`
	CardSize int    `json:"card_size"`
}

func newCardResponse(def model.CardDefinition) cardResponse {
	return cardResponse{CardDefinition: def, Type: card.Type, CardSize: card.Size}
}

func (h *CardAPIHandler) changed(msg websocket.Message) {
	if h.onChange != nil {
		h.onChange()
	}
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// decodeConfig reads a raw dashboard config object and validates it.
func decodeConfig(r *http.Request) (config.CardConfig, error) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return config.CardConfig{}, errInvalidJSON
	}
	return config.ParseCardConfig(raw)
}

var errInvalidJSON = errors.New("invalid JSON")

func (h *CardAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.cards.List()
	if err != nil {
		h.logger.Error("list cards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list cards")
		return
	}
	out := make([]cardResponse, 0, len(defs))
	for _, d := range defs {
		out = append(out, newCardResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CardAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	def, err := h.cards.GetByID(id)
	if err != nil {
		h.logger.Error("get card", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get card")
		return
	}
	if def == nil {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}
	writeJSON(w, http.StatusOK, newCardResponse(*def))
}

func (h *CardAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	cfg, err := decodeConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	def, err := h.cards.Create(cfg)
	if err != nil {
		h.logger.Error("create card", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create card")
		return
	}

	h.logger.Info("card created", "id", def.ID, "entity", def.Entity)
	h.changed(websocket.CardUpdated(def.ID))
	writeJSON(w, http.StatusCreated, newCardResponse(*def))
}

func (h *CardAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	cfg, err := decodeConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	def, err := h.cards.Update(id, cfg)
	if err != nil {
		h.logger.Error("update card", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update card")
		return
	}
	if def == nil {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}

	h.changed(websocket.CardUpdated(id))
	writeJSON(w, http.StatusOK, newCardResponse(*def))
}

func (h *CardAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.cards.GetByID(id)
	if err != nil {
		h.logger.Error("get card", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get card")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}

	if err := h.cards.Delete(id); err != nil {
		h.logger.Error("delete card", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete card")
		return
	}

	h.sessions.Forget(id)
	h.changed(websocket.CardDeleted(id))
	w.WriteHeader(http.StatusNoContent)
}
