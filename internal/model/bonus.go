package model

import (
	"time"

	"github.com/google/uuid"
)

type Bonus struct {
	ID          int64     `db:"id" json:"id"`
	OwnerUUID   uuid.UUID `db:"uuid" json:"ownerUuid"`
	Kind        BonusKind `db:"kind" json:"kind"`
	Seconds     int64     `db:"seconds" json:"seconds"`
	GrantedDate time.Time `db:"granted_date" json:"grantedDate"`
	Active      bool      `db:"active" json:"active"`
}

type GrantBonusParams struct {
	OwnerUUID   uuid.UUID
	Kind        BonusKind
	Seconds     int64
	GrantedDate time.Time
	Active      bool
}

// ActiveOn reports whether the bonus contributes to a player's allowance
// on the given day. Permanent bonuses count while their active flag is
// set; daily bonuses count only on the day they were granted.
func (b Bonus) ActiveOn(day time.Time) bool {
	switch b.Kind {
	case BonusKindPermanent:
		return b.Active
	case BonusKindDaily:
		return SameDay(b.GrantedDate, day)
	default:
		return false
	}
}
