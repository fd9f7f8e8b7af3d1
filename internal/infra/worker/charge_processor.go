package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"donation-service/internal/domain"
	"donation-service/internal/domain/model"
	"donation-service/internal/domain/ports/repository"
	"donation-service/internal/infra/logging"
	"donation-service/internal/infra/metrics"
	red "donation-service/internal/infra/redis"
	"donation-service/internal/usecase"
)

const (
	chargeLockPrefix = "charge:"
	chargeLockTTL    = 2 * time.Minute
	maxBackoff       = time.Hour
)

// ChargeProcessor drains the durable charge queue. Each claimed job runs the
// charge use case; transient gateway failures are rescheduled with
// exponential backoff, fatal ones (source already consumed, source gone) are
// finalized immediately since retrying cannot change the outcome.
type ChargeProcessor struct {
	jobs        repository.ChargeJobRepository
	charger     usecase.ChargeUseCase
	txm         repository.TransactionManager
	locker      red.Locker
	maxAttempts int
	baseBackoff time.Duration
	poll        time.Duration
	log         *zerolog.Logger
}

func NewChargeProcessor(
	jobs repository.ChargeJobRepository,
	charger usecase.ChargeUseCase,
	txm repository.TransactionManager,
	locker red.Locker,
	maxAttempts int,
	baseBackoff, pollInterval time.Duration,
	log *zerolog.Logger,
) *ChargeProcessor {
	return &ChargeProcessor{
		jobs:        jobs,
		charger:     charger,
		txm:         txm,
		locker:      locker,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		poll:        pollInterval,
		log:         log,
	}
}

// Start runs a loop to fetch and process jobs.
// This should be run in a goroutine.
func (p *ChargeProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("charge processor started")
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("charge processor stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				p.processOne(ctx)
				return nil
			})
		}
	}
}

func (p *ChargeProcessor) processOne(ctx context.Context) {
	job, err := p.jobs.FetchAndMarkProcessing(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("failed to fetch charge job")
		}
		return // queue empty, or an error occurred
	}

	log := p.log.With().Str("job_id", job.ID).Str("source_id", job.SourceID).Logger()
	log.Info().Int("attempt", job.Attempts).Msg("processing charge job")
	ctx = logging.WithSourceID(ctx, job.SourceID)
	ctx = log.WithContext(ctx)

	// One source at a time; a concurrently held lock means another worker is
	// already on a duplicate delivery of this source.
	token, err := p.locker.TryLock(ctx, chargeLockPrefix+job.SourceID, chargeLockTTL)
	if err != nil {
		p.reschedule(ctx, job, "source locked by another worker")
		return
	}
	defer func() { _ = p.locker.Unlock(ctx, chargeLockPrefix+job.SourceID, token) }()

	// The donation event and the job's terminal state commit together: a crash
	// between the two cannot leave a recorded charge on a still-pending job.
	start := time.Now()
	chargeErr := p.txm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := p.charger.Charge(ctx, tx, job.SourceID); err != nil {
			return err
		}
		return p.jobs.MarkSucceeded(ctx, tx, job.ID)
	})
	metrics.ObserveChargeJobLatency(int(time.Since(start) / time.Millisecond))

	switch {
	case chargeErr == nil:
		metrics.IncChargeJob(string(model.ChargeJobStatusSucceeded))
	case errors.Is(chargeErr, domain.ErrSourceNotChargeable), errors.Is(chargeErr, domain.ErrNotFound):
		// Retrying cannot make a consumed or missing source chargeable.
		log.Error().Err(chargeErr).Msg("charge job failed fatally")
		p.fail(ctx, job, chargeErr.Error())
	case job.Attempts >= p.maxAttempts:
		log.Error().Err(chargeErr).Int("attempts", job.Attempts).Msg("charge job exhausted retries")
		p.fail(ctx, job, chargeErr.Error())
	default:
		log.Warn().Err(chargeErr).Msg("charge job will be retried")
		p.reschedule(ctx, job, chargeErr.Error())
	}
}

func (p *ChargeProcessor) fail(ctx context.Context, job *model.ChargeJob, lastError string) {
	if err := p.jobs.MarkFailed(ctx, nil, job.ID, lastError); err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to finalize charge job")
		return
	}
	metrics.IncChargeJob(string(model.ChargeJobStatusFailed))
}

func (p *ChargeProcessor) reschedule(ctx context.Context, job *model.ChargeJob, reason string) {
	next := time.Now().UTC().Add(p.backoff(job.Attempts))
	if err := p.jobs.Reschedule(ctx, nil, job.ID, reason, next); err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to reschedule charge job")
		return
	}
	metrics.IncChargeJob("rescheduled")
}

// backoff doubles per attempt, capped at maxBackoff.
func (p *ChargeProcessor) backoff(attempts int) time.Duration {
	d := p.baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
