package model

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

type DonationEventType string

const (
	// DonationEventInternal marks events caused by this system's own gateway calls.
	DonationEventInternal DonationEventType = "internal"
	// DonationEventExternal marks events delivered by the gateway's webhooks.
	DonationEventExternal DonationEventType = "external"
)

// DonationEvent is one entry of the append-only payment audit trail. The
// payload is the raw gateway JSON of whatever object the step produced
// (session, source, charge, subscription, or a full webhook event).
// Entries are never updated or deleted.
type DonationEvent struct {
	ID        string
	Type      DonationEventType
	UserID    *string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// NewDonationEvent stamps a fresh entry with a ULID, which keeps ids sortable
// in insertion order.
func NewDonationEvent(typ DonationEventType, userID *string, payload json.RawMessage) *DonationEvent {
	now := time.Now().UTC()
	return &DonationEvent{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Type:      typ,
		UserID:    userID,
		Payload:   payload,
		CreatedAt: now,
	}
}
