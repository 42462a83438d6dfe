package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/grivyzom/playtimer-server/internal/audit"
	"github.com/grivyzom/playtimer-server/internal/config"
	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
	"github.com/grivyzom/playtimer-server/internal/model"
	"github.com/grivyzom/playtimer-server/internal/repository"
)

// BonusLedger manages time grants. The active total is always derived at
// query time from the stored bonuses, never cached, so daily bonuses age
// out automatically when the calendar date changes.
type BonusLedger struct {
	bonuses  repository.BonusRepository
	history  repository.HistoryRepository
	settings *config.Store
	clock    clockwork.Clock
}

func NewBonusLedger(
	bonuses repository.BonusRepository,
	history repository.HistoryRepository,
	settings *config.Store,
	clock clockwork.Clock,
) *BonusLedger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BonusLedger{
		bonuses:  bonuses,
		history:  history,
		settings: settings,
		clock:    clock,
	}
}

// Grant appends a new bonus. Grants are never merged: granting twice
// leaves two bonuses.
func (l *BonusLedger) Grant(
	ctx context.Context,
	owner uuid.UUID,
	kind model.BonusKind,
	seconds int64,
	active bool,
) (*model.Bonus, error) {
	if seconds <= 0 {
		return nil, apperrors.InvalidInput("seconds", "must be positive")
	}
	if !kind.Valid() {
		return nil, apperrors.InvalidInput("kind", fmt.Sprintf("unknown bonus kind %q", kind))
	}

	settings := l.settings.Current()
	switch kind {
	case model.BonusKindDaily:
		if !settings.DailyEnabled {
			return nil, apperrors.ValidationError("daily bonuses are disabled")
		}
		if seconds > settings.MaxDailySeconds {
			return nil, apperrors.InvalidInput("seconds",
				fmt.Sprintf("daily bonus exceeds maximum of %d seconds", settings.MaxDailySeconds))
		}
	case model.BonusKindPermanent:
		if !settings.PermanentEnabled {
			return nil, apperrors.ValidationError("permanent bonuses are disabled")
		}
	}

	bonus, err := l.bonuses.Insert(ctx, model.GrantBonusParams{
		OwnerUUID:   owner,
		Kind:        kind,
		Seconds:     seconds,
		GrantedDate: l.clock.Now(),
		Active:      active,
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	l.appendHistory(ctx, owner, fmt.Sprintf("bonus_granted:%s:%d", kind, seconds))
	audit.Log(audit.Event{
		Type:   audit.EventBonusGranted,
		Player: owner,
		Details: map[string]interface{}{
			"bonus_id": bonus.ID,
			"kind":     string(kind),
			"seconds":  seconds,
			"notify":   settings.NotifyOnBonus,
		},
	})

	return bonus, nil
}

// Revoke removes a bonus by id. Revoking an id that does not exist
// returns a NOT_FOUND error rather than succeeding silently.
func (l *BonusLedger) Revoke(ctx context.Context, id int64) error {
	removed, err := l.bonuses.Delete(ctx, id)
	if err != nil {
		return apperrors.Storage(err)
	}
	if removed == nil {
		return apperrors.NotFound("Bonus")
	}

	l.appendHistory(ctx, removed.OwnerUUID, fmt.Sprintf("bonus_revoked:%d", id))
	audit.Log(audit.Event{
		Type:   audit.EventBonusRevoked,
		Player: removed.OwnerUUID,
		Details: map[string]interface{}{
			"bonus_id": id,
			"kind":     string(removed.Kind),
			"seconds":  removed.Seconds,
		},
	})
	return nil
}

// ActiveTotal sums the seconds of the player's currently-contributing
// bonuses: permanent ones still flagged active plus daily ones granted
// today.
func (l *BonusLedger) ActiveTotal(ctx context.Context, owner uuid.UUID) (int64, error) {
	total, err := l.bonuses.ActiveTotal(ctx, owner, l.clock.Now())
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	return total, nil
}

// List returns every bonus of a player, active or not.
func (l *BonusLedger) List(ctx context.Context, owner uuid.UUID) ([]model.Bonus, error) {
	bonuses, err := l.bonuses.ListByOwner(ctx, owner)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return bonuses, nil
}

// appendHistory is best-effort: the audit trail never blocks an
// operation that already succeeded.
func (l *BonusLedger) appendHistory(ctx context.Context, owner uuid.UUID, action string) {
	if err := l.history.Append(ctx, owner, action); err != nil {
		log.Error().Err(err).Str("player", owner.String()).Str("action", action).
			Msg("failed to append history entry")
	}
}
