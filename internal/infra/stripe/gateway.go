package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"donation-service/internal/domain"
	"donation-service/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.PaymentGateway = (*Gateway)(nil)

const (
	metadataNameKey      = "name"
	recurringProductName = "Recurring Donation"
	statementDescriptor  = "Donation"
)

// Gateway implements the payment gateway port on the Stripe SDK. One instance
// is constructed at startup with the API key and shared by all callers; the
// SDK client is stateless and safe for concurrent use.
type Gateway struct {
	api *client.API
}

func NewGateway(apiKey string) *Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Gateway{api: api}
}

func (g *Gateway) FindCustomerByEmail(ctx context.Context, email string) (*adapter.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	iter := g.api.Customers.List(params)
	for iter.Next() {
		return toCustomer(iter.Customer()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, mapError(err)
	}
	return nil, nil
}

func (g *Gateway) ListCustomersByEmail(ctx context.Context, email string) ([]*adapter.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	iter := g.api.Customers.List(params)
	var out []*adapter.Customer
	for iter.Next() {
		out = append(out, toCustomer(iter.Customer()))
	}
	if err := iter.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, email, name string) (*adapter.Customer, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata(metadataNameKey, name)
	customer, err := g.api.Customers.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return toCustomer(customer), nil
}

func (g *Gateway) UpdateCustomerName(ctx context.Context, customerID, name string) (*adapter.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddMetadata(metadataNameKey, name)
	customer, err := g.api.Customers.Update(customerID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toCustomer(customer), nil
}

func (g *Gateway) GetCustomer(ctx context.Context, customerID string) (*adapter.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	customer, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toCustomer(customer), nil
}

func (g *Gateway) GetSource(ctx context.Context, sourceID string) (*adapter.Source, error) {
	params := &stripe.SourceParams{}
	params.Context = ctx
	source, err := g.api.Sources.Get(sourceID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toSource(source), nil
}

func (g *Gateway) AttachSource(ctx context.Context, customerID, sourceID string) (*adapter.Source, error) {
	params := &stripe.PaymentSourceParams{
		Customer: stripe.String(customerID),
		Source:   &stripe.PaymentSourceSourceParams{Token: stripe.String(sourceID)},
	}
	params.Context = ctx
	if _, err := g.api.PaymentSources.New(params); err != nil {
		return nil, mapError(err)
	}
	// Re-fetch so the returned record (and its logged payload) reflects the
	// attached state including the customer reference.
	return g.GetSource(ctx, sourceID)
}

func (g *Gateway) CreateCharge(ctx context.Context, spec adapter.ChargeSpec) (*adapter.Charge, error) {
	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(spec.Amount),
		Currency:    stripe.String(spec.Currency),
		Description: stripe.String(spec.Description),
	}
	params.Context = ctx
	if spec.CustomerID != "" {
		params.Customer = stripe.String(spec.CustomerID)
	}
	if err := params.SetSource(spec.SourceID); err != nil {
		return nil, fmt.Errorf("set source: %w", err)
	}
	charge, err := g.api.Charges.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	out := &adapter.Charge{
		ID:       charge.ID,
		Amount:   charge.Amount,
		Currency: string(charge.Currency),
		Raw:      rawJSON(charge),
	}
	if charge.Customer != nil {
		out.CustomerID = charge.Customer.ID
	}
	return out, nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, spec adapter.CheckoutSessionSpec) (*adapter.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:         stripe.String(spec.SuccessURL),
		CancelURL:          stripe.String(spec.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	if spec.PlanID != "" {
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.CustomerEmail = stripe.String(spec.CustomerEmail)
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(spec.PlanID),
			Quantity: stripe.Int64(1),
		}}
	} else {
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.Customer = stripe.String(spec.CustomerID)
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(spec.Currency),
				UnitAmount: stripe.Int64(spec.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(spec.Description),
				},
			},
		}}
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return &adapter.CheckoutSession{ID: session.ID, Raw: rawJSON(session)}, nil
}

func (g *Gateway) CreateMonthlyPlan(ctx context.Context, amount int64, currency string) (*adapter.Plan, error) {
	productID, err := g.ensureRecurringProduct(ctx)
	if err != nil {
		return nil, err
	}
	params := &stripe.PlanParams{
		Product:       &stripe.PlanProductParams{ID: stripe.String(productID)},
		Active:        stripe.Bool(true),
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		Interval:      stripe.String(string(stripe.PlanIntervalMonth)),
		IntervalCount: stripe.Int64(1),
		BillingScheme: stripe.String(string(stripe.PlanBillingSchemePerUnit)),
		UsageType:     stripe.String(string(stripe.PlanUsageTypeLicensed)),
	}
	params.Context = ctx
	plan, err := g.api.Plans.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return &adapter.Plan{ID: plan.ID, Raw: rawJSON(plan)}, nil
}

// ensureRecurringProduct finds the single shared recurring-donation product by
// name among active service products, creating it the first time.
func (g *Gateway) ensureRecurringProduct(ctx context.Context) (string, error) {
	listParams := &stripe.ProductListParams{Active: stripe.Bool(true)}
	listParams.Context = ctx
	iter := g.api.Products.List(listParams)
	for iter.Next() {
		if product := iter.Product(); product.Name == recurringProductName {
			return product.ID, nil
		}
	}
	if err := iter.Err(); err != nil {
		return "", mapError(err)
	}

	params := &stripe.ProductParams{
		Active:              stripe.Bool(true),
		Name:                stripe.String(recurringProductName),
		StatementDescriptor: stripe.String(statementDescriptor),
		Type:                stripe.String(string(stripe.ProductTypeService)),
	}
	params.Context = ctx
	product, err := g.api.Products.New(params)
	if err != nil {
		return "", mapError(err)
	}
	return product.ID, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, customerID, planID, defaultSourceID string) (*adapter.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer:         stripe.String(customerID),
		DefaultSource:    stripe.String(defaultSourceID),
		CollectionMethod: stripe.String(string(stripe.SubscriptionCollectionMethodChargeAutomatically)),
		Items: []*stripe.SubscriptionItemsParams{{
			Plan:     stripe.String(planID),
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	subscription, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return toSubscription(subscription), nil
}

func (g *Gateway) GetSubscription(ctx context.Context, subscriptionID string) (*adapter.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	subscription, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toSubscription(subscription), nil
}

func (g *Gateway) ListSubscriptions(ctx context.Context, customerID string) ([]*adapter.Subscription, error) {
	params := &stripe.SubscriptionListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	iter := g.api.Subscriptions.List(params)
	var out []*adapter.Subscription
	for iter.Next() {
		out = append(out, toSubscription(iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) (*adapter.Subscription, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	subscription, err := g.api.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toSubscription(subscription), nil
}

func (g *Gateway) VerifyWebhook(payload []byte, sigHeader, secret string) (*adapter.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrSignatureVerification)
	}
	return &adapter.WebhookEvent{
		ID:     event.ID,
		Type:   string(event.Type),
		Object: event.Data.Raw,
		Raw:    json.RawMessage(payload),
	}, nil
}

func toCustomer(c *stripe.Customer) *adapter.Customer {
	return &adapter.Customer{
		ID:    c.ID,
		Email: c.Email,
		Name:  c.Metadata[metadataNameKey],
		Raw:   rawJSON(c),
	}
}

func toSource(s *stripe.Source) *adapter.Source {
	return &adapter.Source{
		ID:           s.ID,
		Status:       string(s.Status),
		Amount:       s.Amount,
		Currency:     string(s.Currency),
		CustomerID:   s.Customer,
		ClientSecret: s.ClientSecret,
		Raw:          rawJSON(s),
	}
}

func toSubscription(s *stripe.Subscription) *adapter.Subscription {
	out := &adapter.Subscription{
		ID:     s.ID,
		Status: string(s.Status),
		Raw:    rawJSON(s),
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Plan != nil {
		out.PlanID = s.Items.Data[0].Plan.ID
	}
	return out
}

func rawJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
