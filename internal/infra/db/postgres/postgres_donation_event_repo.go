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

var _ repository.DonationEventRepository = (*donationEventRepo)(nil)

// donationEventRepo persists the append-only audit trail. There is
// intentionally no UPDATE or DELETE statement in this file.
//
// Expected table:
//
//	CREATE TABLE donation_events (
//	  id         TEXT PRIMARY KEY,
//	  type       TEXT NOT NULL,
//	  user_id    TEXT,
//	  payload    JSONB NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL
//	);
type donationEventRepo struct{ pool *pgxpool.Pool }

func NewDonationEventRepo(pool *pgxpool.Pool) *donationEventRepo {
	return &donationEventRepo{pool: pool}
}

func (r *donationEventRepo) Append(ctx context.Context, tx repository.Tx, event *model.DonationEvent) error {
	const q = `
INSERT INTO donation_events (id, type, user_id, payload, created_at)
VALUES ($1, $2, $3, $4, $5);`

	_, err := execSQL(ctx, r.pool, tx, q, event.ID, event.Type, event.UserID, []byte(event.Payload), event.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *donationEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DonationEvent, error) {
	const q = `SELECT id, type, user_id, payload, created_at FROM donation_events WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	event := &model.DonationEvent{}
	var payload []byte
	if err := row.Scan(&event.ID, &event.Type, &event.UserID, &payload, &event.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	event.Payload = payload
	return event, nil
}

func (r *donationEventRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.DonationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, type, user_id, payload, created_at FROM donation_events
WHERE user_id=$1 ORDER BY id DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *donationEventRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.DonationEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, type, user_id, payload, created_at FROM donation_events ORDER BY id DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]*model.DonationEvent, error) {
	var out []*model.DonationEvent
	for rows.Next() {
		event := &model.DonationEvent{}
		var payload []byte
		if err := rows.Scan(&event.ID, &event.Type, &event.UserID, &payload, &event.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		event.Payload = payload
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
