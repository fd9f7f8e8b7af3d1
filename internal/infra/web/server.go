package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/repository"
	"donation-service/internal/infra/logging"
	"donation-service/internal/usecase"
)

type ctxKey string

const ctxKeyUser ctxKey = "donor-user"

func userFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(*model.User)
	return u, ok
}

type Server struct {
	router *chi.Mux
	srv    *http.Server

	donations     usecase.DonationUseCase
	webhooks      usecase.WebhookUseCase
	subscriptions usecase.SubscriptionUseCase
	users         repository.UserRepository
	auth          *AuthManager
	log           *zerolog.Logger
}

func NewServer(
	port int,
	donations usecase.DonationUseCase,
	webhooks usecase.WebhookUseCase,
	subscriptions usecase.SubscriptionUseCase,
	users repository.UserRepository,
	auth *AuthManager,
	log *zerolog.Logger,
) *Server {
	s := &Server{
		donations:     donations,
		webhooks:      webhooks,
		subscriptions: subscriptions,
		users:         users,
		auth:          auth,
		log:           log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.withRequestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/card", s.handleCardCheckout)
			r.Post("/sepa", s.handleSepaCheckout)
			r.Post("/ideal", s.handleIDealCheckout)
			r.Get("/ideal/status", s.handleIDealStatus)
		})
		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(s.requireDonor)
			r.Get("/", s.handleListSubscriptions)
			r.Delete("/{subscriptionID}", s.handleCancelSubscription)
		})
	})

	r.Route("/webhooks/stripe", func(r chi.Router) {
		r.Post("/chargeable", s.handleChargeableWebhook)
		r.Post("/events", s.handlePaymentEventWebhook)
	})

	s.router = r
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("web server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// withRequestLogger puts a request-scoped logger carrying the trace id into
// the context; downstream code picks it up via zerolog.Ctx.
func (s *Server) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		ctx = logging.With(ctx, s.log).WithContext(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireDonor authenticates the session token and loads the account, so
// handlers below it always see a resolved *model.User.
func (s *Server) requireDonor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
			return
		}
		user, err := s.users.FindByID(r.Context(), nil, claims.Subject)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody("unknown account"))
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUser, user)
		ctx = logging.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
