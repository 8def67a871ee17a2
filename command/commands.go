package command

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func newHeader(idempotencyKey string) header {
	return header{
		ID:             watermill.NewUUID(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// TriggerSyncDrain asks the offline sync engine to drain the pending queue,
// the operator's manual "sync now" action.
type TriggerSyncDrain struct {
	Header header `json:"header"`
}

func NewTriggerSyncDrain(idempotencyKey string) TriggerSyncDrain {
	return TriggerSyncDrain{
		Header: newHeader(idempotencyKey),
	}
}
