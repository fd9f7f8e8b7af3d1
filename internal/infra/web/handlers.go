package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
)

const maxWebhookBody = 1 << 20 // stripe caps event payloads well below this

type cardCheckoutRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
	Recurring  bool   `json:"recurring"`
}

type sepaCheckoutRequest struct {
	SourceID string `json:"source_id"`
	Amount   int64  `json:"amount"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type idealCheckoutRequest struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type subscriptionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	PlanID string `json:"plan_id,omitempty"`
}

func (s *Server) handleCardCheckout(w http.ResponseWriter, r *http.Request) {
	var req cardCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("malformed request body"))
		return
	}
	checkout := &model.CardCheckout{
		Amount:     req.Amount,
		Currency:   req.Currency,
		Name:       req.Name,
		Email:      req.Email,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Recurring:  req.Recurring,
	}
	sessionID, err := s.donations.InitializeCardCheckout(r.Context(), checkout)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"checkout_session_id": sessionID})
}

func (s *Server) handleSepaCheckout(w http.ResponseWriter, r *http.Request) {
	var req sepaCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("malformed request body"))
		return
	}
	checkout := &model.SepaCheckout{
		SourceID: req.SourceID,
		Amount:   req.Amount,
		Name:     req.Name,
		Email:    req.Email,
	}
	if err := s.donations.InitializeSepaDirect(r.Context(), checkout); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIDealCheckout(w http.ResponseWriter, r *http.Request) {
	var req idealCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("malformed request body"))
		return
	}
	checkout := &model.IDealCheckout{
		SourceID: req.SourceID,
		Name:     req.Name,
		Email:    req.Email,
	}
	if err := s.donations.InitializeIDealCheckout(r.Context(), checkout); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIDealStatus(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source_id")
	clientSecret := r.URL.Query().Get("client_secret")
	if sourceID == "" || clientSecret == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source_id and client_secret are required"))
		return
	}
	ok, err := s.donations.HasIDealPaymentSucceeded(r.Context(), sourceID, clientSecret)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"succeeded": ok})
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
		return
	}
	subs, err := s.subscriptions.ListFor(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscriptionResponse{ID: sub.ID, Status: sub.Status, PlanID: sub.PlanID})
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
		return
	}
	subscriptionID := chi.URLParam(r, "subscriptionID")
	if subscriptionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("subscription id is required"))
		return
	}
	if err := s.subscriptions.Cancel(r.Context(), subscriptionID, user); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleChargeableWebhook(w http.ResponseWriter, r *http.Request) {
	payload, sig, ok := s.readWebhook(w, r)
	if !ok {
		return
	}
	if err := s.webhooks.HandleChargeable(r.Context(), payload, sig); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePaymentEventWebhook(w http.ResponseWriter, r *http.Request) {
	payload, sig, ok := s.readWebhook(w, r)
	if !ok {
		return
	}
	if err := s.webhooks.HandlePaymentEvent(r.Context(), payload, sig); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// readWebhook reads the raw body without any decoding; signature verification
// needs the exact bytes stripe signed.
func (s *Server) readWebhook(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unreadable payload"))
		return nil, "", false
	}
	return payload, r.Header.Get("Stripe-Signature"), true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorBody(vErr.Error()))
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrSignatureVerification),
		errors.Is(err, domain.ErrUnexpectedWebhookEvent):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, domain.ErrNotSubscriptionOwner):
		writeJSON(w, http.StatusForbidden, errorBody("subscription does not belong to this account"))
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeJSON(w, http.StatusBadGateway, errorBody("payment provider unavailable"))
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
