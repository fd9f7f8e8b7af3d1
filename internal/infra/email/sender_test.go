//go:build !integration

package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSender_SendTemplated(t *testing.T) {
	ctx := context.Background()

	type thankYouData struct {
		Name             string
		HasSubscriptions bool
	}

	t.Run("posts the rendered mail with bearer auth", func(t *testing.T) {
		var got sendRequest
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		s, err := NewSender(srv.URL, "key-123", "donations@example.com")
		if err != nil {
			t.Fatalf("failed to build sender: %v", err)
		}

		err = s.SendTemplated(ctx, "jan@example.com", "Thank you", "donation_thank_you",
			thankYouData{Name: "Jan", HasSubscriptions: false})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if auth != "Bearer key-123" {
			t.Errorf("expected bearer auth, got %q", auth)
		}
		if got.To != "jan@example.com" || got.From != "donations@example.com" {
			t.Errorf("unexpected envelope: %+v", got)
		}
		if !strings.Contains(got.HTML, "Jan") {
			t.Error("expected the donor name rendered into the body")
		}
		if strings.Contains(got.HTML, "recurring donation") {
			t.Error("one-time donors must not get the recurring framing")
		}
	})

	t.Run("frames recurring donors differently", func(t *testing.T) {
		var got sendRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
		}))
		defer srv.Close()

		s, _ := NewSender(srv.URL, "key", "donations@example.com")
		err := s.SendTemplated(ctx, "jan@example.com", "Thank you", "donation_thank_you",
			thankYouData{Name: "Jan", HasSubscriptions: true})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !strings.Contains(got.HTML, "recurring donation") {
			t.Error("recurring donors should get the subscription framing")
		}
	})

	t.Run("reports an API failure with the response body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid recipient", http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		s, _ := NewSender(srv.URL, "key", "donations@example.com")
		err := s.SendTemplated(ctx, "bad", "Thank you", "donation_thank_you", thankYouData{})
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "invalid recipient") {
			t.Errorf("expected status and body in the error, got: %v", err)
		}
	})

	t.Run("fails on an unknown template", func(t *testing.T) {
		s, _ := NewSender("http://unused", "key", "donations@example.com")
		err := s.SendTemplated(ctx, "jan@example.com", "x", "no_such_template", nil)
		if err == nil {
			t.Fatal("expected an error for a missing template")
		}
	})
}
