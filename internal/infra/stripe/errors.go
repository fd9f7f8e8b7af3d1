package stripe

import (
	"errors"
	"fmt"
	"net/http"

	stripe "github.com/stripe/stripe-go/v74"

	"donation-service/internal/domain"
)

// mapError folds Stripe SDK errors into the domain taxonomy: missing
// resources become ErrNotFound, 5xx and transport failures become
// ErrGatewayUnavailable so the job layer can tell retryable from fatal.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.Code == stripe.ErrorCodeResourceMissing,
			stripeErr.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", stripeErr.Msg, domain.ErrNotFound)
		case stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w", stripeErr.Msg, domain.ErrGatewayUnavailable)
		}
		return err
	}
	// Anything without a structured gateway response is a transport-level
	// failure and treated as transient.
	return fmt.Errorf("%v: %w", err, domain.ErrGatewayUnavailable)
}
