package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/grivyzom/playtimer-server/internal/audit"
	"github.com/grivyzom/playtimer-server/internal/config"
	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
	"github.com/grivyzom/playtimer-server/internal/repository"
)

// PermissionChecker is supplied by the host permission system. The
// engine only consumes it; it never manages permissions itself.
type PermissionChecker interface {
	HasPermission(ctx context.Context, player uuid.UUID, permission string) (bool, error)
}

// PermissionFunc adapts a plain function to PermissionChecker.
type PermissionFunc func(ctx context.Context, player uuid.UUID, permission string) (bool, error)

func (f PermissionFunc) HasPermission(ctx context.Context, player uuid.UUID, permission string) (bool, error) {
	return f(ctx, player, permission)
}

// NoPermissions denies every permission check. It is the default when no
// permission collaborator is wired in.
var NoPermissions = PermissionFunc(func(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
})

// Remaining is the outcome of a limit check. When Unlimited is set the
// Seconds value is meaningless.
type Remaining struct {
	Seconds   int64 `json:"seconds"`
	Unlimited bool  `json:"unlimited"`
}

// LimitPolicy resolves the effective daily cap for a player from their
// rank allowance and active bonuses. An allowance of 0 is the sentinel
// for "unlimited", so unknown ranks fail open instead of locking
// players out on misconfiguration.
type LimitPolicy struct {
	settings *config.Store
	accounts repository.AccountRepository
	ledger   *BonusLedger
	perms    PermissionChecker
}

func NewLimitPolicy(
	settings *config.Store,
	accounts repository.AccountRepository,
	ledger *BonusLedger,
	perms PermissionChecker,
) *LimitPolicy {
	if perms == nil {
		perms = NoPermissions
	}
	return &LimitPolicy{
		settings: settings,
		accounts: accounts,
		ledger:   ledger,
		perms:    perms,
	}
}

// EffectiveLimit returns the player's cap in seconds for today, 0
// meaning unlimited. Bonuses cannot make an unlimited rank limited.
func (p *LimitPolicy) EffectiveLimit(ctx context.Context, player uuid.UUID) (int64, error) {
	rank, err := p.accounts.Rank(ctx, player)
	if err != nil {
		return 0, apperrors.Storage(err)
	}

	base := p.settings.Current().LimitForGroup(rank)
	if base == 0 {
		return 0, nil
	}

	bonus, err := p.ledger.ActiveTotal(ctx, player)
	if err != nil {
		return 0, err
	}
	return base + bonus, nil
}

// HasBypass reports whether the player holds the configured bypass
// permission. Checker failures count as no bypass.
func (p *LimitPolicy) HasBypass(ctx context.Context, player uuid.UUID) bool {
	permission := p.settings.Current().BypassPermission
	ok, err := p.perms.HasPermission(ctx, player, permission)
	if err != nil {
		log.Warn().Err(err).Str("player", player.String()).Str("permission", permission).
			Msg("permission check failed, treating as no bypass")
		return false
	}
	return ok
}

// Remaining computes how many seconds the player may still play today.
func (p *LimitPolicy) Remaining(ctx context.Context, player uuid.UUID) (Remaining, error) {
	if p.HasBypass(ctx, player) {
		return Remaining{Unlimited: true}, nil
	}

	limit, err := p.EffectiveLimit(ctx, player)
	if err != nil {
		return Remaining{}, err
	}
	if limit == 0 {
		return Remaining{Unlimited: true}, nil
	}

	played, err := p.accounts.PlayedToday(ctx, player)
	if err != nil {
		return Remaining{}, apperrors.Storage(err)
	}

	remaining := limit - played
	if remaining <= 0 {
		audit.Log(audit.Event{
			Type:   audit.EventLimitExceeded,
			Player: player,
			Details: map[string]interface{}{
				"limit_seconds":  limit,
				"played_seconds": played,
			},
		})
		return Remaining{}, nil
	}
	return Remaining{Seconds: remaining}, nil
}
