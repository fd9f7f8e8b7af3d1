package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/repository"
)

var _ repository.ChargeJobRepository = (*chargeJobRepo)(nil)

// chargeJobRepo is the durable charge queue. Claiming uses
// FOR UPDATE SKIP LOCKED so concurrent workers never double-claim, and jobs
// stuck in processing (crashed worker) become claimable again after
// staleProcessingAfter.
//
// Expected table:
//
//	CREATE TABLE charge_jobs (
//	  id              TEXT PRIMARY KEY,
//	  source_id       TEXT NOT NULL,
//	  status          TEXT NOT NULL,
//	  attempts        INT NOT NULL DEFAULT 0,
//	  last_error      TEXT NOT NULL DEFAULT '',
//	  next_attempt_at TIMESTAMPTZ NOT NULL,
//	  created_at      TIMESTAMPTZ NOT NULL,
//	  updated_at      TIMESTAMPTZ NOT NULL
//	);
type chargeJobRepo struct{ pool *pgxpool.Pool }

const staleProcessingAfter = 5 * time.Minute

func NewChargeJobRepo(pool *pgxpool.Pool) *chargeJobRepo {
	return &chargeJobRepo{pool: pool}
}

func (r *chargeJobRepo) Enqueue(ctx context.Context, tx repository.Tx, sourceID string) (*model.ChargeJob, error) {
	now := time.Now().UTC()
	job := &model.ChargeJob{
		ID:            uuid.NewString(),
		SourceID:      sourceID,
		Status:        model.ChargeJobStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	const q = `
INSERT INTO charge_jobs (id, source_id, status, attempts, last_error, next_attempt_at, created_at, updated_at)
VALUES ($1, $2, $3, 0, '', $4, $5, $5);`
	_, err := execSQL(ctx, r.pool, tx, q, job.ID, job.SourceID, job.Status, job.NextAttemptAt, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	return job, nil
}

func (r *chargeJobRepo) FetchAndMarkProcessing(ctx context.Context) (*model.ChargeJob, error) {
	const q = `
UPDATE charge_jobs SET status='processing', attempts=attempts+1, updated_at=NOW()
WHERE id = (
    SELECT id FROM charge_jobs
    WHERE (status='pending' AND next_attempt_at <= NOW())
       OR (status='processing' AND updated_at < NOW() - $1::interval)
    ORDER BY next_attempt_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING id, source_id, status, attempts, last_error, next_attempt_at, created_at, updated_at;`

	row, err := pickRow(ctx, r.pool, nil, q, staleProcessingAfter.String())
	if err != nil {
		return nil, err
	}

	job := &model.ChargeJob{}
	if err := row.Scan(&job.ID, &job.SourceID, &job.Status, &job.Attempts, &job.LastError, &job.NextAttemptAt, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return job, nil
}

func (r *chargeJobRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, jobID string) error {
	const q = `UPDATE charge_jobs SET status='succeeded', last_error='', updated_at=NOW() WHERE id=$1;`
	return r.exec(ctx, tx, q, jobID)
}

func (r *chargeJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, jobID string, lastError string) error {
	const q = `UPDATE charge_jobs SET status='failed', last_error=$2, updated_at=NOW() WHERE id=$1;`
	return r.exec(ctx, tx, q, jobID, lastError)
}

func (r *chargeJobRepo) Reschedule(ctx context.Context, tx repository.Tx, jobID string, lastError string, nextAttemptAt time.Time) error {
	const q = `UPDATE charge_jobs SET status='pending', last_error=$2, next_attempt_at=$3, updated_at=NOW() WHERE id=$1;`
	return r.exec(ctx, tx, q, jobID, lastError, nextAttemptAt)
}

func (r *chargeJobRepo) exec(ctx context.Context, tx repository.Tx, q string, args ...interface{}) error {
	_, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
