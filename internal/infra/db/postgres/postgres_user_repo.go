package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

// userRepo reads platform accounts owned by the identity subsystem; the
// donation core only ever queries it.
type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	const q = `SELECT id, email, full_name, registered_at FROM users WHERE LOWER(email)=LOWER($1) LIMIT 1;`
	return r.findOne(ctx, tx, q, email)
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, email, full_name, registered_at FROM users WHERE id=$1;`
	return r.findOne(ctx, tx, q, id)
}

func (r *userRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg any) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}

	user := &model.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.RegisteredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return user, nil
}
