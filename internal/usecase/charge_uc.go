package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/adapter"
	"donation-service/internal/domain/ports/repository"
)

// Compile-time check
var _ ChargeUseCase = (*chargeUC)(nil)

// ChargeUseCase executes the deferred charge of a previously attached source.
// It runs as a durable background job with at-least-once delivery, so Charge
// must tolerate being invoked more than once for the same source id. The tx
// handle lets the caller commit the donation event together with its own
// bookkeeping; nil runs the append standalone.
type ChargeUseCase interface {
	Charge(ctx context.Context, tx repository.Tx, sourceID string) error
}

type chargeUC struct {
	gateway adapter.PaymentGateway
	events  repository.DonationEventRepository
	users   repository.UserRepository
	log     *zerolog.Logger
}

func NewChargeUseCase(
	gateway adapter.PaymentGateway,
	events repository.DonationEventRepository,
	users repository.UserRepository,
	log *zerolog.Logger,
) *chargeUC {
	return &chargeUC{gateway: gateway, events: events, users: users, log: log}
}

func (u *chargeUC) Charge(ctx context.Context, tx repository.Tx, sourceID string) error {
	u.log.Info().Str("source_id", sourceID).Msg("processing chargeable source")

	// Re-checking the status is what makes redelivery safe: a source already
	// charged reports consumed and the duplicate invocation stops here.
	source, err := u.gateway.GetSource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("get source: %w", err)
	}
	if source.Status != adapter.SourceStatusChargeable {
		u.log.Error().Str("source_id", sourceID).Str("status", source.Status).Msg("source not chargeable")
		return fmt.Errorf("source %s has status %s: %w", sourceID, source.Status, domain.ErrSourceNotChargeable)
	}

	charge, err := u.gateway.CreateCharge(ctx, adapter.ChargeSpec{
		Amount:      source.Amount,
		Currency:    source.Currency,
		SourceID:    sourceID,
		CustomerID:  source.CustomerID,
		Description: donationDescription,
	})
	if err != nil {
		// Transient gateway failures are retried by the job queue, not here.
		u.log.Error().Err(err).Str("source_id", sourceID).Msg("charge creation failed")
		return fmt.Errorf("create charge: %w", err)
	}

	var userID *string
	if source.CustomerID != "" {
		if customer, err := u.gateway.GetCustomer(ctx, source.CustomerID); err != nil {
			u.log.Warn().Err(err).Str("customer_id", source.CustomerID).Msg("customer lookup failed")
		} else {
			userID = resolveUserID(ctx, u.users, customer.Email)
		}
	}

	event := model.NewDonationEvent(model.DonationEventInternal, userID, charge.Raw)
	if err := u.events.Append(ctx, tx, event); err != nil {
		return fmt.Errorf("append donation event: %w", err)
	}
	u.log.Info().Str("source_id", sourceID).Str("charge_id", charge.ID).Msg("charge processed")
	return nil
}
