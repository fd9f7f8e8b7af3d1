package repository

import (
	"context"

	"donation-service/internal/domain/model"
)

// DonationEventRepository is the audit trail of every payment-related gateway
// interaction. The interface is append-only on purpose: there is no update or
// delete, encoding the log's immutability at the type level.
type DonationEventRepository interface {
	Append(ctx context.Context, tx Tx, event *model.DonationEvent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.DonationEvent, error)
	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.DonationEvent, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.DonationEvent, error)
}
