package repository

import (
	"context"

	"donation-service/internal/domain/model"
)

// UserRepository is a read-only view of platform accounts; the donation core
// never creates or mutates users.
type UserRepository interface {
	// FindByEmail returns ErrNotFound when no account uses the address.
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
}
