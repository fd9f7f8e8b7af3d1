package model

import (
	"net/mail"
	"net/url"
	"strings"

	"donation-service/internal/domain"
)

// The four donation flows share a validated core (amount, currency, email)
// but differ in the fields the client must supply:
//   - one-time card and recurring card checkouts carry redirect URLs,
//   - SEPA and iDeal carry a client-created gateway source token.
// Each variant validates itself; a request never reaches the gateway with a
// field violating these constraints.

type CardCheckout struct {
	Amount     int64 // minor currency units
	Currency   string
	Name       string
	Email      string
	SuccessURL string
	CancelURL  string
	Recurring  bool
}

func (c *CardCheckout) Validate() error {
	v := &domain.ValidationError{}
	validateAmount(v, c.Amount)
	validateCurrency(v, c.Currency)
	validateName(v, c.Name)
	validateEmail(v, c.Email)
	validateURL(v, "successUrl", c.SuccessURL)
	validateURL(v, "cancelUrl", c.CancelURL)
	return v.OrNil()
}

// SepaCheckout starts a recurring SEPA direct-debit subscription on a
// client-created source. The currency is always eur for SEPA mandates.
type SepaCheckout struct {
	SourceID string
	Amount   int64 // minor currency units
	Name     string
	Email    string
}

func (c *SepaCheckout) Validate() error {
	v := &domain.ValidationError{}
	validateAmount(v, c.Amount)
	validateSourceID(v, c.SourceID)
	validateName(v, c.Name)
	validateEmail(v, c.Email)
	return v.OrNil()
}

// IDealCheckout attaches a client-created iDeal source to a customer; the
// amount lives on the source itself, chosen client-side.
type IDealCheckout struct {
	SourceID string
	Name     string
	Email    string
}

func (c *IDealCheckout) Validate() error {
	v := &domain.ValidationError{}
	validateSourceID(v, c.SourceID)
	validateName(v, c.Name)
	validateEmail(v, c.Email)
	return v.OrNil()
}

func validateAmount(v *domain.ValidationError, amount int64) {
	if amount <= 0 {
		v.Add("amount", "must be a positive number of minor currency units")
	}
}

func validateCurrency(v *domain.ValidationError, currency string) {
	if len(currency) != 3 {
		v.Add("currency", "must be a 3-letter ISO currency code")
		return
	}
	for _, r := range currency {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			v.Add("currency", "must be a 3-letter ISO currency code")
			return
		}
	}
}

func validateName(v *domain.ValidationError, name string) {
	if strings.TrimSpace(name) == "" {
		v.Add("name", "is required")
	}
}

func validateEmail(v *domain.ValidationError, email string) {
	if _, err := mail.ParseAddress(email); err != nil {
		v.Add("email", "must be a valid e-mail address")
	}
}

func validateURL(v *domain.ValidationError, field, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		v.Add(field, "must be an absolute http(s) URL")
	}
}

func validateSourceID(v *domain.ValidationError, sourceID string) {
	if sourceID == "" {
		v.Add("sourceId", "is required")
	}
}
