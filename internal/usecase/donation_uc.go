package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/adapter"
	"donation-service/internal/domain/ports/repository"
	"donation-service/internal/infra/logging"
	"donation-service/internal/infra/metrics"
)

// Compile-time check
var _ DonationUseCase = (*donationUC)(nil)

const (
	donationDescription = "donation"
	sepaCurrency        = "eur"
)

// DonationUseCase turns a validated checkout request into gateway-side state
// (checkout session, attached source, or subscription), appending one
// internal event-log entry per successful gateway mutation before returning.
type DonationUseCase interface {
	// InitializeCardCheckout creates a hosted checkout session and returns its id.
	InitializeCardCheckout(ctx context.Context, checkout *model.CardCheckout) (string, error)
	// InitializeSepaDirect attaches the client-created source and starts an
	// auto-charged monthly subscription on it.
	InitializeSepaDirect(ctx context.Context, checkout *model.SepaCheckout) error
	// InitializeIDealCheckout attaches the client-created iDeal source to the
	// donor's customer record; the charge happens later via the chargeable webhook.
	InitializeIDealCheckout(ctx context.Context, checkout *model.IDealCheckout) error
	// HasIDealPaymentSucceeded is polled by the client after the bank redirect.
	HasIDealPaymentSucceeded(ctx context.Context, sourceID, clientSecret string) (bool, error)
}

type donationUC struct {
	gateway adapter.PaymentGateway
	events  repository.DonationEventRepository
	users   repository.UserRepository
	log     *zerolog.Logger
}

func NewDonationUseCase(
	gateway adapter.PaymentGateway,
	events repository.DonationEventRepository,
	users repository.UserRepository,
	log *zerolog.Logger,
) *donationUC {
	return &donationUC{gateway: gateway, events: events, users: users, log: log}
}

func (u *donationUC) InitializeCardCheckout(ctx context.Context, checkout *model.CardCheckout) (string, error) {
	if err := checkout.Validate(); err != nil {
		return "", err
	}

	spec := adapter.CheckoutSessionSpec{
		SuccessURL: checkout.SuccessURL,
		CancelURL:  checkout.CancelURL,
	}
	if checkout.Recurring {
		u.log.Info().Str("email", logging.Redact(checkout.Email)).Msg("initializing recurring card checkout")
		plan, err := u.gateway.CreateMonthlyPlan(ctx, checkout.Amount, checkout.Currency)
		if err != nil {
			return "", fmt.Errorf("create recurring plan: %w", err)
		}
		// The gateway creates the customer at checkout completion for this
		// flow, so the session is keyed by e-mail rather than customer id.
		spec.CustomerEmail = checkout.Email
		spec.PlanID = plan.ID
	} else {
		u.log.Info().Str("email", logging.Redact(checkout.Email)).Msg("initializing card checkout")
		customer, err := u.getOrCreateCustomer(ctx, checkout.Name, checkout.Email)
		if err != nil {
			return "", err
		}
		spec.CustomerID = customer.ID
		spec.Amount = checkout.Amount
		spec.Currency = checkout.Currency
		spec.Description = donationDescription
	}

	session, err := u.gateway.CreateCheckoutSession(ctx, spec)
	if err != nil {
		metrics.IncCheckout("card", "failed")
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	if err := u.appendInternal(ctx, checkout.Email, session.Raw); err != nil {
		return "", err
	}
	metrics.IncCheckout("card", "initialized")
	return session.ID, nil
}

func (u *donationUC) InitializeSepaDirect(ctx context.Context, checkout *model.SepaCheckout) error {
	if err := checkout.Validate(); err != nil {
		return err
	}
	u.log.Info().Str("email", logging.Redact(checkout.Email)).Msg("initializing sepa direct")

	customer, err := u.getOrCreateCustomer(ctx, checkout.Name, checkout.Email)
	if err != nil {
		return err
	}
	source, err := u.gateway.AttachSource(ctx, customer.ID, checkout.SourceID)
	if err != nil {
		metrics.IncCheckout("sepa", "failed")
		return fmt.Errorf("attach source: %w", err)
	}
	plan, err := u.gateway.CreateMonthlyPlan(ctx, checkout.Amount, sepaCurrency)
	if err != nil {
		metrics.IncCheckout("sepa", "failed")
		return fmt.Errorf("create recurring plan: %w", err)
	}
	subscription, err := u.gateway.CreateSubscription(ctx, customer.ID, plan.ID, source.ID)
	if err != nil {
		metrics.IncCheckout("sepa", "failed")
		return fmt.Errorf("create subscription: %w", err)
	}

	if err := u.appendInternal(ctx, checkout.Email, subscription.Raw); err != nil {
		return err
	}
	metrics.IncCheckout("sepa", "initialized")
	u.log.Info().Str("subscription_id", subscription.ID).Msg("done initializing sepa direct")
	return nil
}

func (u *donationUC) InitializeIDealCheckout(ctx context.Context, checkout *model.IDealCheckout) error {
	if err := checkout.Validate(); err != nil {
		return err
	}
	u.log.Info().Str("email", logging.Redact(checkout.Email)).Msg("initializing ideal checkout")

	customer, err := u.getOrCreateCustomer(ctx, checkout.Name, checkout.Email)
	if err != nil {
		return err
	}
	source, err := u.gateway.AttachSource(ctx, customer.ID, checkout.SourceID)
	if err != nil {
		metrics.IncCheckout("ideal", "failed")
		return fmt.Errorf("attach source: %w", err)
	}

	if err := u.appendInternal(ctx, checkout.Email, source.Raw); err != nil {
		return err
	}
	metrics.IncCheckout("ideal", "initialized")
	u.log.Info().Str("source_id", source.ID).Msg("done initializing ideal checkout")
	return nil
}

func (u *donationUC) HasIDealPaymentSucceeded(ctx context.Context, sourceID, clientSecret string) (bool, error) {
	source, err := u.gateway.GetSource(ctx, sourceID)
	if err != nil {
		return false, err
	}
	succeeded := source.Status == adapter.SourceStatusChargeable || source.Status == adapter.SourceStatusConsumed
	return succeeded && clientSecret == source.ClientSecret, nil
}

// getOrCreateCustomer resolves the gateway customer for an e-mail, creating it
// on first contact and refreshing the stored display name when it drifted.
// Two concurrent requests for a brand-new e-mail can both observe "no
// customer" and each create one; that duplicate is tolerated downstream.
func (u *donationUC) getOrCreateCustomer(ctx context.Context, name, email string) (*adapter.Customer, error) {
	customer, err := u.gateway.FindCustomerByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if customer == nil {
		customer, err = u.gateway.CreateCustomer(ctx, email, name)
		if err != nil {
			return nil, fmt.Errorf("create customer: %w", err)
		}
		return customer, nil
	}
	if customer.Name != name {
		customer, err = u.gateway.UpdateCustomerName(ctx, customer.ID, name)
		if err != nil {
			return nil, fmt.Errorf("update customer: %w", err)
		}
	}
	return customer, nil
}

// appendInternal writes the internal event-log entry for a successful gateway
// call, associated with the local account for the e-mail when one exists.
// It runs before the use case returns so callers can rely on "returned
// success implies logged".
func (u *donationUC) appendInternal(ctx context.Context, email string, payload []byte) error {
	userID := resolveUserID(ctx, u.users, email)
	event := model.NewDonationEvent(model.DonationEventInternal, userID, payload)
	if err := u.events.Append(ctx, nil, event); err != nil {
		return fmt.Errorf("append donation event: %w", err)
	}
	return nil
}

// resolveUserID looks up the local account id for an e-mail, best effort.
func resolveUserID(ctx context.Context, users repository.UserRepository, email string) *string {
	if email == "" {
		return nil
	}
	user, err := users.FindByEmail(ctx, nil, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("email", logging.Redact(email)).Msg("user lookup failed")
		}
		return nil
	}
	return &user.ID
}
