package adapter

import (
	"context"
	"encoding/json"
)

// Source lifecycle statuses as reported by the gateway.
const (
	SourceStatusChargeable = "chargeable"
	SourceStatusConsumed   = "consumed"
)

// Gateway event types the dispatcher acts on.
const (
	EventTypeSourceChargeable = "source.chargeable"
	EventTypeChargeSucceeded  = "charge.succeeded"
)

// Customer is the gateway-side payer identity, keyed by e-mail. The core
// never persists a copy; Raw is the gateway JSON for the audit log.
type Customer struct {
	ID    string
	Email string
	Name  string
	Raw   json.RawMessage
}

// Source is a gateway token for one payment instrument authorization.
type Source struct {
	ID           string
	Status       string
	Amount       int64
	Currency     string
	CustomerID   string
	ClientSecret string
	Raw          json.RawMessage
}

type Charge struct {
	ID         string
	Amount     int64
	Currency   string
	CustomerID string
	Raw        json.RawMessage
}

type CheckoutSession struct {
	ID  string
	Raw json.RawMessage
}

type Plan struct {
	ID  string
	Raw json.RawMessage
}

type Subscription struct {
	ID         string
	CustomerID string
	Status     string
	PlanID     string
	Raw        json.RawMessage
}

// WebhookEvent is a signature-verified inbound gateway event. Object holds
// the JSON of the event's primary object (source, charge, ...); Raw the whole
// event envelope.
type WebhookEvent struct {
	ID     string
	Type   string
	Object json.RawMessage
	Raw    json.RawMessage
}

// CheckoutSessionSpec describes a hosted checkout session. Exactly one of the
// two shapes is used: a single line item (Amount/Currency/Description, with an
// upfront CustomerID) for one-time payments, or PlanID (with CustomerEmail,
// the gateway creates the customer at checkout time) for subscriptions.
type CheckoutSessionSpec struct {
	SuccessURL    string
	CancelURL     string
	CustomerID    string
	CustomerEmail string
	Amount        int64
	Currency      string
	Description   string
	PlanID        string
}

// ChargeSpec describes an actual money movement against a chargeable source.
type ChargeSpec struct {
	Amount      int64
	Currency    string
	SourceID    string
	CustomerID  string
	Description string
}

// PaymentGateway abstracts the payment processor's customer, source, charge,
// session, plan/product and subscription APIs. Every returned record carries
// the processor's raw JSON so callers can append it to the event log verbatim.
type PaymentGateway interface {
	// FindCustomerByEmail returns the first customer matching the exact
	// address, or nil when none exists.
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	// ListCustomersByEmail returns every customer using the address. More than
	// one is a data-quality situation callers must tolerate.
	ListCustomersByEmail(ctx context.Context, email string) ([]*Customer, error)
	CreateCustomer(ctx context.Context, email, name string) (*Customer, error)
	UpdateCustomerName(ctx context.Context, customerID, name string) (*Customer, error)

	GetSource(ctx context.Context, sourceID string) (*Source, error)
	AttachSource(ctx context.Context, customerID, sourceID string) (*Source, error)

	CreateCharge(ctx context.Context, spec ChargeSpec) (*Charge, error)
	CreateCheckoutSession(ctx context.Context, spec CheckoutSessionSpec) (*CheckoutSession, error)

	// CreateMonthlyPlan mints a fresh monthly plan for the amount/currency on
	// the single shared recurring-donation product, creating that product on
	// first use.
	CreateMonthlyPlan(ctx context.Context, amount int64, currency string) (*Plan, error)

	CreateSubscription(ctx context.Context, customerID, planID, defaultSourceID string) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)

	// VerifyWebhook checks the payload signature against the shared secret and
	// parses the event. It returns ErrSignatureVerification before reading any
	// event content on mismatch.
	VerifyWebhook(payload []byte, sigHeader, secret string) (*WebhookEvent, error)
}
