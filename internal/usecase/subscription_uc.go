package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/adapter"
	"donation-service/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase lists and cancels recurring donations on behalf of an
// authenticated user. Ownership is established through e-mail equality with
// the gateway customer; a subscription is never looked at by id alone.
type SubscriptionUseCase interface {
	ListFor(ctx context.Context, user *model.User) ([]*adapter.Subscription, error)
	Cancel(ctx context.Context, subscriptionID string, user *model.User) error
}

type subscriptionUC struct {
	gateway adapter.PaymentGateway
	events  repository.DonationEventRepository
	log     *zerolog.Logger
}

func NewSubscriptionUseCase(
	gateway adapter.PaymentGateway,
	events repository.DonationEventRepository,
	log *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{gateway: gateway, events: events, log: log}
}

// ListFor flattens subscriptions over every gateway customer carrying the
// user's e-mail. More than one customer per address is rare but possible.
func (u *subscriptionUC) ListFor(ctx context.Context, user *model.User) ([]*adapter.Subscription, error) {
	customers, err := u.gateway.ListCustomersByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	var all []*adapter.Subscription
	for _, customer := range customers {
		subscriptions, err := u.gateway.ListSubscriptions(ctx, customer.ID)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions for %s: %w", customer.ID, err)
		}
		all = append(all, subscriptions...)
	}
	return all, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, subscriptionID string, user *model.User) error {
	subscription, err := u.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("get subscription: %w", err)
	}
	customer, err := u.gateway.GetCustomer(ctx, subscription.CustomerID)
	if err != nil {
		return fmt.Errorf("get customer: %w", err)
	}

	// Authorization gate: no gateway mutation happens unless the customer's
	// e-mail matches the requesting user's, case-insensitively.
	if !strings.EqualFold(customer.Email, user.Email) {
		u.log.Warn().
			Str("subscription_id", subscriptionID).
			Str("user_id", user.ID).
			Msg("cancel refused: subscription owned by another e-mail")
		return fmt.Errorf("user %s does not own subscription %s: %w", user.ID, subscriptionID, domain.ErrNotSubscriptionOwner)
	}

	canceled, err := u.gateway.CancelSubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}

	event := model.NewDonationEvent(model.DonationEventInternal, &user.ID, canceled.Raw)
	if err := u.events.Append(ctx, nil, event); err != nil {
		return fmt.Errorf("append donation event: %w", err)
	}
	u.log.Info().Str("subscription_id", subscriptionID).Str("user_id", user.ID).Msg("subscription canceled")
	return nil
}
