package adapter

import "context"

// EmailSender delivers templated transactional mail. Delivery is best effort;
// callers log failures but do not fail the surrounding operation.
type EmailSender interface {
	SendTemplated(ctx context.Context, to, subject, template string, data any) error
}
