package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/grivyzom/playtimer-server/internal/audit"
	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
	"github.com/grivyzom/playtimer-server/internal/model"
	"github.com/grivyzom/playtimer-server/internal/repository"
	"github.com/grivyzom/playtimer-server/internal/storage"
)

// AccountingService is the single entry point surrounding components
// call into. It orchestrates the tracker, ledger, policy and storage;
// it holds no durable state of its own.
type AccountingService struct {
	backend  storage.Backend
	accounts repository.AccountRepository
	history  repository.HistoryRepository
	tracker  *SessionTracker
	ledger   *BonusLedger
	policy   *LimitPolicy

	// commits serializes read-modify-write cycles per player so two
	// near-simultaneous session ends for the same player cannot lose an
	// update. Distinct players commit concurrently.
	commits playerLocks
	wg      sync.WaitGroup
}

func NewAccountingService(
	backend storage.Backend,
	accounts repository.AccountRepository,
	history repository.HistoryRepository,
	tracker *SessionTracker,
	ledger *BonusLedger,
	policy *LimitPolicy,
) *AccountingService {
	return &AccountingService{
		backend:  backend,
		accounts: accounts,
		history:  history,
		tracker:  tracker,
		ledger:   ledger,
		policy:   policy,
	}
}

// OnSessionStart ensures the player's account exists and begins timing
// their session. It never fails the caller: account bootstrap errors are
// logged and the session is tracked regardless.
func (s *AccountingService) OnSessionStart(ctx context.Context, player uuid.UUID, name, rank string) {
	if err := s.accounts.Ensure(ctx, model.CreateAccountParams{
		UUID: player,
		Name: name,
		Rank: rank,
	}); err != nil {
		log.Error().Err(err).Str("player", player.String()).Msg("failed to ensure account")
	}

	s.tracker.Begin(player)
	audit.Log(audit.Event{Type: audit.EventSessionStart, Player: player})
}

// OnSessionEnd computes the session's elapsed seconds and commits them
// asynchronously, off the caller's latency-critical path. Storage
// failures are logged and swallowed; the caller never sees them.
func (s *AccountingService) OnSessionEnd(player uuid.UUID) {
	elapsed := s.tracker.End(player)
	audit.Log(audit.Event{
		Type:    audit.EventSessionEnd,
		Player:  player,
		Details: map[string]interface{}{"elapsed_seconds": elapsed},
	})
	if elapsed == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.commit(context.Background(), player, elapsed)
	}()
}

// commit folds elapsed seconds into the player's cumulative total and
// daily counter. Failures never propagate: the session's time is lost
// but play is never interrupted.
func (s *AccountingService) commit(ctx context.Context, player uuid.UUID, elapsed int64) {
	unlock := s.commits.lock(player)
	defer unlock()

	total, err := s.backend.GetPlayTime(ctx, player)
	if err != nil {
		s.logCommitFailure(player, elapsed, err)
		return
	}
	if err := s.backend.SavePlayTime(ctx, player, total+elapsed); err != nil {
		s.logCommitFailure(player, elapsed, err)
		return
	}
	if err := s.accounts.AddPlayedToday(ctx, player, elapsed); err != nil {
		s.logCommitFailure(player, elapsed, err)
		return
	}

	if err := s.history.Append(ctx, player, fmt.Sprintf("session_commit:%d", elapsed)); err != nil {
		log.Error().Err(err).Str("player", player.String()).Msg("failed to append history entry")
	}
}

func (s *AccountingService) logCommitFailure(player uuid.UUID, elapsed int64, err error) {
	log.Error().Err(err).
		Str("player", player.String()).
		Int64("elapsed_seconds", elapsed).
		Msg("failed to commit session time, playtime lost")
	audit.Log(audit.Event{
		Type:    audit.EventCommitFailed,
		Player:  player,
		Details: map[string]interface{}{"elapsed_seconds": elapsed},
	})
}

// QueryAccumulated returns the player's total-ever playtime in seconds.
// Internal failures map to a user-visible "try again later" signal.
func (s *AccountingService) QueryAccumulated(ctx context.Context, player uuid.UUID) (int64, error) {
	total, err := s.backend.GetPlayTime(ctx, player)
	if err != nil {
		log.Error().Err(err).Str("player", player.String()).Msg("playtime query failed")
		return 0, apperrors.Unavailable()
	}
	return total, nil
}

// GetRemaining returns how long the player may still play today.
func (s *AccountingService) GetRemaining(ctx context.Context, player uuid.UUID) (Remaining, error) {
	remaining, err := s.policy.Remaining(ctx, player)
	if err != nil {
		log.Error().Err(err).Str("player", player.String()).Msg("remaining query failed")
		return Remaining{}, apperrors.Unavailable()
	}
	return remaining, nil
}

// GrantBonus delegates to the ledger.
func (s *AccountingService) GrantBonus(
	ctx context.Context,
	player uuid.UUID,
	kind model.BonusKind,
	seconds int64,
	active bool,
) (*model.Bonus, error) {
	return s.ledger.Grant(ctx, player, kind, seconds, active)
}

// RevokeBonus delegates to the ledger.
func (s *AccountingService) RevokeBonus(ctx context.Context, id int64) error {
	return s.ledger.Revoke(ctx, id)
}

// ListBonuses delegates to the ledger.
func (s *AccountingService) ListBonuses(ctx context.Context, player uuid.UUID) ([]model.Bonus, error) {
	return s.ledger.List(ctx, player)
}

// ListHistory returns a player's most recent audit entries.
func (s *AccountingService) ListHistory(ctx context.Context, player uuid.UUID, limit int) ([]model.HistoryEntry, error) {
	entries, err := s.history.ListByOwner(ctx, player, limit)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return entries, nil
}

// ChangeRank updates the player's permission group.
func (s *AccountingService) ChangeRank(ctx context.Context, player uuid.UUID, rank string) error {
	rank = strings.TrimSpace(rank)
	if rank == "" {
		return apperrors.MissingRequired("rank")
	}

	if err := s.accounts.SetRank(ctx, player, rank); err != nil {
		return apperrors.Storage(err)
	}

	if err := s.history.Append(ctx, player, fmt.Sprintf("rank_changed:%s", rank)); err != nil {
		log.Error().Err(err).Str("player", player.String()).Msg("failed to append history entry")
	}
	audit.Log(audit.Event{
		Type:    audit.EventRankChanged,
		Player:  player,
		Details: map[string]interface{}{"rank": rank},
	})
	return nil
}

// Checkpoint commits the progress of every in-flight session and
// restarts their clocks, bounding the data-loss window between explicit
// session ends. Driven on an interval by the auto-save job.
func (s *AccountingService) Checkpoint(ctx context.Context) {
	progress := s.tracker.Checkpoint()
	for player, elapsed := range progress {
		if elapsed == 0 {
			continue
		}
		s.commit(ctx, player, elapsed)
	}
	if len(progress) > 0 {
		audit.Log(audit.Event{
			Type:    audit.EventCheckpoint,
			Details: map[string]interface{}{"sessions": len(progress)},
		})
	}
}

// Shutdown flushes every in-flight session as if it ended now, waits for
// async commits to drain, and closes the storage backend.
func (s *AccountingService) Shutdown(ctx context.Context) error {
	for player, elapsed := range s.tracker.FlushAll() {
		if elapsed == 0 {
			continue
		}
		s.commit(ctx, player, elapsed)
	}

	s.wg.Wait()
	return s.backend.Close()
}

// playerLocks hands out one mutex per player key. The map only grows
// with the player population, which is small.
type playerLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (p *playerLocks) lock(player uuid.UUID) (unlock func()) {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	l, ok := p.locks[player]
	if !ok {
		l = &sync.Mutex{}
		p.locks[player] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
