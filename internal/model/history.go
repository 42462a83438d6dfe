package model

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is an append-only audit record. The engine only writes
// these during normal operation; reads happen through the HTTP surface.
type HistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	OwnerUUID uuid.UUID `db:"uuid" json:"ownerUuid"`
	Action    string    `db:"action" json:"action"`
	At        time.Time `db:"at" json:"at"`
}
