package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/kidsched/internal/model"
	"github.com/dukerupert/kidsched/internal/registry"
	"github.com/dukerupert/kidsched/internal/store"
)

const (
	defaultCallLimit = 50
	maxCallLimit     = 500
)

type MetaHandler struct {
	calls  *store.ServiceCallStore
	logger *slog.Logger
}

func NewMetaHandler(calls *store.ServiceCallStore, logger *slog.Logger) *MetaHandler {
	return &MetaHandler{calls: calls, logger: logger}
}

// CardTypes lists the card types a dashboard editor can add.
func (h *MetaHandler) CardTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.List())
}

// ServiceCalls lists recent service calls, newest first. ?limit caps the
// number returned.
func (h *MetaHandler) ServiceCalls(w http.ResponseWriter, r *http.Request) {
	limit := defaultCallLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxCallLimit)
	}

	calls, err := h.calls.ListRecent(limit)
	if err != nil {
		h.logger.Error("list service calls", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list service calls")
		return
	}
	if calls == nil {
		calls = []model.ServiceCall{}
	}
	writeJSON(w, http.StatusOK, calls)
}
