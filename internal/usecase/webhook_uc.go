package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/adapter"
	"donation-service/internal/domain/ports/repository"
	"donation-service/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

const thankYouSubject = "Thank you for your donation"

// WebhookUseCase dispatches the two inbound gateway webhooks. Each endpoint
// has its own shared secret; signature verification happens before any read
// or write of the payload.
type WebhookUseCase interface {
	// HandleChargeable accepts only source.chargeable events and enqueues a
	// charge job for the source. It deliberately writes no event-log entry:
	// the log should reflect the outcome of charging, which the charge
	// processor records.
	HandleChargeable(ctx context.Context, payload []byte, sigHeader string) error
	// HandlePaymentEvent logs every verified event as external, whatever its
	// type, then sends the thank-you mail on charge.succeeded.
	HandlePaymentEvent(ctx context.Context, payload []byte, sigHeader string) error
}

type webhookUC struct {
	gateway adapter.PaymentGateway
	events  repository.DonationEventRepository
	jobs    repository.ChargeJobRepository
	email   adapter.EmailSender

	chargeableSecret   string
	paymentEventSecret string

	log *zerolog.Logger
}

func NewWebhookUseCase(
	gateway adapter.PaymentGateway,
	events repository.DonationEventRepository,
	jobs repository.ChargeJobRepository,
	email adapter.EmailSender,
	chargeableSecret, paymentEventSecret string,
	log *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		gateway:            gateway,
		events:             events,
		jobs:               jobs,
		email:              email,
		chargeableSecret:   chargeableSecret,
		paymentEventSecret: paymentEventSecret,
		log:                log,
	}
}

func (u *webhookUC) HandleChargeable(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := u.gateway.VerifyWebhook(payload, sigHeader, u.chargeableSecret)
	if err != nil {
		metrics.IncWebhook("chargeable", "rejected")
		return err
	}
	if event.Type != adapter.EventTypeSourceChargeable {
		// This endpoint is provisioned for source.chargeable only; anything
		// else means a misconfigured webhook and must surface loudly.
		metrics.IncWebhook("chargeable", "unexpected")
		return fmt.Errorf("%w: got %q on chargeable webhook", domain.ErrUnexpectedWebhookEvent, event.Type)
	}

	var source struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Object, &source); err != nil || source.ID == "" {
		metrics.IncWebhook("chargeable", "unexpected")
		return fmt.Errorf("%w: chargeable event without source id", domain.ErrUnexpectedWebhookEvent)
	}

	job, err := u.jobs.Enqueue(ctx, nil, source.ID)
	if err != nil {
		return fmt.Errorf("enqueue charge job: %w", err)
	}
	metrics.IncWebhook("chargeable", "accepted")
	u.log.Info().Str("source_id", source.ID).Str("job_id", job.ID).Msg("charge job enqueued")
	return nil
}

func (u *webhookUC) HandlePaymentEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := u.gateway.VerifyWebhook(payload, sigHeader, u.paymentEventSecret)
	if err != nil {
		metrics.IncWebhook("payment_event", "rejected")
		return err
	}

	// The log must capture everything the gateway sends, acted on or not,
	// so the append comes before any type-specific handling.
	entry := model.NewDonationEvent(model.DonationEventExternal, nil, event.Raw)
	if err := u.events.Append(ctx, nil, entry); err != nil {
		return fmt.Errorf("append donation event: %w", err)
	}
	metrics.IncWebhook("payment_event", "logged")

	if event.Type != adapter.EventTypeChargeSucceeded {
		return nil
	}

	var charge struct {
		Customer string `json:"customer"`
	}
	if err := json.Unmarshal(event.Object, &charge); err != nil || charge.Customer == "" {
		u.log.Warn().Str("event_id", event.ID).Msg("charge.succeeded event without customer id")
		return nil
	}

	subscriptions, err := u.gateway.ListSubscriptions(ctx, charge.Customer)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	customer, err := u.gateway.GetCustomer(ctx, charge.Customer)
	if err != nil {
		return fmt.Errorf("get customer: %w", err)
	}

	// Thank-you mail is best effort; a mail outage must not fail the webhook.
	data := struct {
		Name             string
		HasSubscriptions bool
	}{Name: customer.Name, HasSubscriptions: len(subscriptions) > 0}
	if err := u.email.SendTemplated(ctx, customer.Email, thankYouSubject, "donation_thank_you", data); err != nil {
		metrics.IncEmail("donation_thank_you", "failed")
		u.log.Error().Err(err).Str("customer_id", customer.ID).Msg("thank-you mail failed")
		return nil
	}
	metrics.IncEmail("donation_thank_you", "sent")
	return nil
}
