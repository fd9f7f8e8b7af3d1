package repository

import (
	"context"
	"time"

	"donation-service/internal/domain/model"
)

// ChargeJobRepository is the durable queue feeding the background charge
// processor. Delivery is at-least-once: a crashed worker leaves the job in
// processing state and the reaper window in FetchAndMarkProcessing hands it
// out again, so the charge handler itself must tolerate re-execution.
type ChargeJobRepository interface {
	// Enqueue inserts a pending job for the source. Duplicate enqueues for the
	// same source are allowed; idempotency lives in the charge handler.
	Enqueue(ctx context.Context, tx Tx, sourceID string) (*model.ChargeJob, error)
	// FetchAndMarkProcessing claims the next due job, or ErrNotFound when the
	// queue is empty.
	FetchAndMarkProcessing(ctx context.Context) (*model.ChargeJob, error)
	MarkSucceeded(ctx context.Context, tx Tx, jobID string) error
	// MarkFailed finalizes a job that exhausted its retries.
	MarkFailed(ctx context.Context, tx Tx, jobID string, lastError string) error
	// Reschedule returns a claimed job to the queue for a later attempt.
	Reschedule(ctx context.Context, tx Tx, jobID string, lastError string, nextAttemptAt time.Time) error
}
