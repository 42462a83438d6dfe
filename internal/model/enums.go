package model

type BonusKind string

const (
	BonusKindPermanent BonusKind = "permanent"
	BonusKindDaily     BonusKind = "daily"
)

func (k BonusKind) Valid() bool {
	return k == BonusKindPermanent || k == BonusKindDaily
}
