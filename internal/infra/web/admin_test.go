//go:build !integration

package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/repository"
	"donation-service/internal/infra/web"
)

type stubEvents struct {
	recent []*model.DonationEvent
	byUser map[string][]*model.DonationEvent
}

func (s *stubEvents) find(id string) *model.DonationEvent {
	for _, e := range s.recent {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (s *stubEvents) Append(ctx context.Context, tx repository.Tx, event *model.DonationEvent) error {
	return nil
}

func (s *stubEvents) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DonationEvent, error) {
	if e := s.find(id); e != nil {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubEvents) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.DonationEvent, error) {
	return s.byUser[userID], nil
}

func (s *stubEvents) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.DonationEvent, error) {
	if limit < len(s.recent) {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func TestAdminHandler_Events(t *testing.T) {
	userID := "user-1"
	events := &stubEvents{
		recent: []*model.DonationEvent{
			model.NewDonationEvent(model.DonationEventExternal, nil, []byte(`{"id":"evt_2"}`)),
			model.NewDonationEvent(model.DonationEventInternal, &userID, []byte(`{"id":"cs_1"}`)),
		},
		byUser: map[string][]*model.DonationEvent{
			"user-1": {model.NewDonationEvent(model.DonationEventInternal, &userID, []byte(`{"id":"cs_1"}`))},
		},
	}
	handler := web.NewAdminHandler(events, testLogger())

	t.Run("lists recent events", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "evt_2") || !strings.Contains(rec.Body.String(), "cs_1") {
			t.Errorf("expected both events listed, got %s", rec.Body)
		}
	})

	t.Run("filters by user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events?user_id=user-1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "cs_1") || strings.Contains(rec.Body.String(), "evt_2") {
			t.Errorf("expected only the user's events, got %s", rec.Body)
		}
	})

	t.Run("honors the limit parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events?limit=1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if strings.Count(rec.Body.String(), `"id"`) != 1 {
			t.Errorf("expected a single event, got %s", rec.Body)
		}
	})

	t.Run("serves a single event by path id", func(t *testing.T) {
		id := events.recent[0].ID
		req := httptest.NewRequest(http.MethodGet, "/events/"+id, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), id) || !strings.Contains(rec.Body.String(), "evt_2") {
			t.Errorf("expected the event payload, got %s", rec.Body)
		}
	})

	t.Run("returns 404 for an unknown event id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events/no-such-id", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("rejects non-GET methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}
