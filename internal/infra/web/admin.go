package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/repository"
)

// AdminHandler exposes read-only views of the donation event log on the admin
// port. It is never mounted on the public server.
type AdminHandler struct {
	events repository.DonationEventRepository
	log    *zerolog.Logger
}

func NewAdminHandler(events repository.DonationEventRepository, log *zerolog.Logger) *AdminHandler {
	return &AdminHandler{events: events, log: log}
}

type eventResponse struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	UserID    *string     `json:"user_id,omitempty"`
	Payload   interface{} `json:"payload"`
	CreatedAt string      `json:"created_at"`
}

// ServeHTTP lists recent events, a single user's events when user_id is
// given, or one event when the path carries an id ("/events/{id}").
// Pagination via offset/limit query parameters.
func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	if id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/events"), "/"); id != "" {
		h.serveOne(w, r, id)
		return
	}

	limit := intQuery(r, "limit", 100)
	offset := intQuery(r, "offset", 0)

	var (
		events []*model.DonationEvent
		err    error
	)
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		events, err = h.events.ListByUser(r.Context(), nil, userID, offset, limit)
	} else {
		events, err = h.events.ListRecent(r.Context(), nil, limit)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("event log read failed")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			UserID:    e.UserID,
			Payload:   json.RawMessage(e.Payload),
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (h *AdminHandler) serveOne(w http.ResponseWriter, r *http.Request, id string) {
	event, err := h.events.FindByID(r.Context(), nil, id)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("event not found"))
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("event_id", id).Msg("event log read failed")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{
		ID:        event.ID,
		Type:      string(event.Type),
		UserID:    event.UserID,
		Payload:   json.RawMessage(event.Payload),
		CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func intQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
