package model

import "time"

type ChargeJobStatus string

const (
	ChargeJobStatusPending    ChargeJobStatus = "pending"
	ChargeJobStatusProcessing ChargeJobStatus = "processing"
	ChargeJobStatusSucceeded  ChargeJobStatus = "succeeded"
	ChargeJobStatusFailed     ChargeJobStatus = "failed"
)

// ChargeJob is one deferred charge of a chargeable source, executed by the
// background processor with at-least-once semantics. Attempts and
// NextAttemptAt drive the processor's retry/backoff policy.
type ChargeJob struct {
	ID            string
	SourceID      string
	Status        ChargeJobStatus
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
