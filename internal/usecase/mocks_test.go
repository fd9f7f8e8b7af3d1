//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/adapter"
	"donation-service/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// memEventRepo is a small in-memory implementation used by unit tests.
type memEventRepo struct {
	mu        sync.Mutex
	events    []*model.DonationEvent
	appendErr error // used by tests to simulate append failures
	appendTx  repository.Tx
}

func newMemEventRepo() *memEventRepo { return &memEventRepo{} }

func (m *memEventRepo) Append(ctx context.Context, tx repository.Tx, event *model.DonationEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendTx = tx
	cp := *event
	m.events = append(m.events, &cp)
	return nil
}

func (m *memEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DonationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memEventRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.DonationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.DonationEvent
	for _, e := range m.events {
		if e.UserID != nil && *e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEventRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.DonationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.DonationEvent, 0, len(m.events))
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.events[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memEventRepo) all() []*model.DonationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.DonationEvent, len(m.events))
	copy(out, m.events)
	return out
}

// memUserRepo keys accounts by lower-cased e-mail, matching the real repo.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // by id
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	m := &memUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// memJobRepo queues jobs in memory with the same claim semantics as postgres.
type memJobRepo struct {
	mu         sync.Mutex
	jobs       []*model.ChargeJob
	seq        int
	enqueueErr error
}

func newMemJobRepo() *memJobRepo { return &memJobRepo{} }

func (m *memJobRepo) Enqueue(ctx context.Context, tx repository.Tx, sourceID string) (*model.ChargeJob, error) {
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	now := time.Now()
	job := &model.ChargeJob{
		ID:            fmt.Sprintf("job-%d", m.seq),
		SourceID:      sourceID,
		Status:        model.ChargeJobStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.jobs = append(m.jobs, job)
	return job, nil
}

func (m *memJobRepo) FetchAndMarkProcessing(ctx context.Context) (*model.ChargeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, j := range m.jobs {
		if j.Status == model.ChargeJobStatusPending && !j.NextAttemptAt.After(now) {
			j.Status = model.ChargeJobStatusProcessing
			j.Attempts++
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memJobRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, jobID string) error {
	return m.setStatus(jobID, model.ChargeJobStatusSucceeded, "")
}

func (m *memJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, jobID string, lastError string) error {
	return m.setStatus(jobID, model.ChargeJobStatusFailed, lastError)
}

func (m *memJobRepo) Reschedule(ctx context.Context, tx repository.Tx, jobID string, lastError string, nextAttemptAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == jobID {
			j.Status = model.ChargeJobStatusPending
			j.LastError = lastError
			j.NextAttemptAt = nextAttemptAt
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memJobRepo) setStatus(jobID string, status model.ChargeJobStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == jobID {
			j.Status = status
			if lastError != "" {
				j.LastError = lastError
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memJobRepo) byID(jobID string) *model.ChargeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == jobID {
			cp := *j
			return &cp
		}
	}
	return nil
}

func (m *memJobRepo) all() []*model.ChargeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ChargeJob, len(m.jobs))
	for i, j := range m.jobs {
		cp := *j
		out[i] = &cp
	}
	return out
}

// MockPaymentGateway is a scriptable gateway: tests set the function fields
// they care about; unset fields fail the call loudly via domain.ErrNotFound
// or return zero values where that is the benign default.
type MockPaymentGateway struct {
	FindCustomerByEmailFunc   func(ctx context.Context, email string) (*adapter.Customer, error)
	ListCustomersByEmailFunc  func(ctx context.Context, email string) ([]*adapter.Customer, error)
	CreateCustomerFunc        func(ctx context.Context, email, name string) (*adapter.Customer, error)
	UpdateCustomerNameFunc    func(ctx context.Context, customerID, name string) (*adapter.Customer, error)
	GetSourceFunc             func(ctx context.Context, sourceID string) (*adapter.Source, error)
	AttachSourceFunc          func(ctx context.Context, customerID, sourceID string) (*adapter.Source, error)
	CreateChargeFunc          func(ctx context.Context, spec adapter.ChargeSpec) (*adapter.Charge, error)
	CreateCheckoutSessionFunc func(ctx context.Context, spec adapter.CheckoutSessionSpec) (*adapter.CheckoutSession, error)
	CreateMonthlyPlanFunc     func(ctx context.Context, amount int64, currency string) (*adapter.Plan, error)
	CreateSubscriptionFunc    func(ctx context.Context, customerID, planID, defaultSourceID string) (*adapter.Subscription, error)
	GetSubscriptionFunc       func(ctx context.Context, subscriptionID string) (*adapter.Subscription, error)
	ListSubscriptionsFunc     func(ctx context.Context, customerID string) ([]*adapter.Subscription, error)
	CancelSubscriptionFunc    func(ctx context.Context, subscriptionID string) (*adapter.Subscription, error)
	GetCustomerFunc           func(ctx context.Context, customerID string) (*adapter.Customer, error)
	VerifyWebhookFunc         func(payload []byte, sigHeader, secret string) (*adapter.WebhookEvent, error)

	mu    sync.Mutex
	Calls map[string]int
}

func (g *MockPaymentGateway) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Calls == nil {
		g.Calls = make(map[string]int)
	}
	g.Calls[name]++
}

func (g *MockPaymentGateway) CallCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Calls[name]
}

func (g *MockPaymentGateway) FindCustomerByEmail(ctx context.Context, email string) (*adapter.Customer, error) {
	g.record("FindCustomerByEmail")
	if g.FindCustomerByEmailFunc != nil {
		return g.FindCustomerByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (g *MockPaymentGateway) ListCustomersByEmail(ctx context.Context, email string) ([]*adapter.Customer, error) {
	g.record("ListCustomersByEmail")
	if g.ListCustomersByEmailFunc != nil {
		return g.ListCustomersByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (g *MockPaymentGateway) CreateCustomer(ctx context.Context, email, name string) (*adapter.Customer, error) {
	g.record("CreateCustomer")
	if g.CreateCustomerFunc != nil {
		return g.CreateCustomerFunc(ctx, email, name)
	}
	return &adapter.Customer{ID: "cus_new", Email: email, Name: name, Raw: []byte(`{"id":"cus_new"}`)}, nil
}

func (g *MockPaymentGateway) UpdateCustomerName(ctx context.Context, customerID, name string) (*adapter.Customer, error) {
	g.record("UpdateCustomerName")
	if g.UpdateCustomerNameFunc != nil {
		return g.UpdateCustomerNameFunc(ctx, customerID, name)
	}
	return &adapter.Customer{ID: customerID, Name: name}, nil
}

func (g *MockPaymentGateway) GetSource(ctx context.Context, sourceID string) (*adapter.Source, error) {
	g.record("GetSource")
	if g.GetSourceFunc != nil {
		return g.GetSourceFunc(ctx, sourceID)
	}
	return nil, domain.ErrNotFound
}

func (g *MockPaymentGateway) AttachSource(ctx context.Context, customerID, sourceID string) (*adapter.Source, error) {
	g.record("AttachSource")
	if g.AttachSourceFunc != nil {
		return g.AttachSourceFunc(ctx, customerID, sourceID)
	}
	return &adapter.Source{ID: sourceID, CustomerID: customerID, Raw: []byte(`{"id":"` + sourceID + `"}`)}, nil
}

func (g *MockPaymentGateway) CreateCharge(ctx context.Context, spec adapter.ChargeSpec) (*adapter.Charge, error) {
	g.record("CreateCharge")
	if g.CreateChargeFunc != nil {
		return g.CreateChargeFunc(ctx, spec)
	}
	return &adapter.Charge{ID: "ch_1", Amount: spec.Amount, Currency: spec.Currency, CustomerID: spec.CustomerID, Raw: []byte(`{"id":"ch_1"}`)}, nil
}

func (g *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, spec adapter.CheckoutSessionSpec) (*adapter.CheckoutSession, error) {
	g.record("CreateCheckoutSession")
	if g.CreateCheckoutSessionFunc != nil {
		return g.CreateCheckoutSessionFunc(ctx, spec)
	}
	return &adapter.CheckoutSession{ID: "cs_1", Raw: []byte(`{"id":"cs_1"}`)}, nil
}

func (g *MockPaymentGateway) CreateMonthlyPlan(ctx context.Context, amount int64, currency string) (*adapter.Plan, error) {
	g.record("CreateMonthlyPlan")
	if g.CreateMonthlyPlanFunc != nil {
		return g.CreateMonthlyPlanFunc(ctx, amount, currency)
	}
	return &adapter.Plan{ID: "plan_1", Raw: []byte(`{"id":"plan_1"}`)}, nil
}

func (g *MockPaymentGateway) CreateSubscription(ctx context.Context, customerID, planID, defaultSourceID string) (*adapter.Subscription, error) {
	g.record("CreateSubscription")
	if g.CreateSubscriptionFunc != nil {
		return g.CreateSubscriptionFunc(ctx, customerID, planID, defaultSourceID)
	}
	return &adapter.Subscription{ID: "sub_1", CustomerID: customerID, PlanID: planID, Status: "active", Raw: []byte(`{"id":"sub_1"}`)}, nil
}

func (g *MockPaymentGateway) GetSubscription(ctx context.Context, subscriptionID string) (*adapter.Subscription, error) {
	g.record("GetSubscription")
	if g.GetSubscriptionFunc != nil {
		return g.GetSubscriptionFunc(ctx, subscriptionID)
	}
	return nil, domain.ErrNotFound
}

func (g *MockPaymentGateway) ListSubscriptions(ctx context.Context, customerID string) ([]*adapter.Subscription, error) {
	g.record("ListSubscriptions")
	if g.ListSubscriptionsFunc != nil {
		return g.ListSubscriptionsFunc(ctx, customerID)
	}
	return nil, nil
}

func (g *MockPaymentGateway) CancelSubscription(ctx context.Context, subscriptionID string) (*adapter.Subscription, error) {
	g.record("CancelSubscription")
	if g.CancelSubscriptionFunc != nil {
		return g.CancelSubscriptionFunc(ctx, subscriptionID)
	}
	return &adapter.Subscription{ID: subscriptionID, Status: "canceled", Raw: []byte(`{"id":"` + subscriptionID + `"}`)}, nil
}

func (g *MockPaymentGateway) GetCustomer(ctx context.Context, customerID string) (*adapter.Customer, error) {
	g.record("GetCustomer")
	if g.GetCustomerFunc != nil {
		return g.GetCustomerFunc(ctx, customerID)
	}
	return nil, domain.ErrNotFound
}

func (g *MockPaymentGateway) VerifyWebhook(payload []byte, sigHeader, secret string) (*adapter.WebhookEvent, error) {
	g.record("VerifyWebhook")
	if g.VerifyWebhookFunc != nil {
		return g.VerifyWebhookFunc(payload, sigHeader, secret)
	}
	return nil, domain.ErrSignatureVerification
}

// MockEmailSender records deliveries.
type mailRecord struct {
	To       string
	Subject  string
	Template string
	Data     any
}

type MockEmailSender struct {
	mu      sync.Mutex
	sent    []mailRecord
	sendErr error
}

func (m *MockEmailSender) SendTemplated(ctx context.Context, to, subject, template string, data any) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mailRecord{To: to, Subject: subject, Template: template, Data: data})
	return nil
}

func (m *MockEmailSender) Sent() []mailRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mailRecord, len(m.sent))
	copy(out, m.sent)
	return out
}
