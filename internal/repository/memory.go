package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/grivyzom/playtimer-server/internal/model"
)

// In-memory repository variants backing the JSON file fallback mode.
// Daily counters, bonuses and history are process-local there: the flat
// file only persists cumulative totals, so this state restarts fresh
// after a crash, matching the durability of the fallback store itself.

type memoryAccountRepo struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	accounts map[uuid.UUID]*model.PlayerAccount
}

func NewMemoryAccountRepository(clock clockwork.Clock) AccountRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &memoryAccountRepo{
		clock:    clock,
		accounts: make(map[uuid.UUID]*model.PlayerAccount),
	}
}

func (r *memoryAccountRepo) WithTx(_ *sqlx.Tx) AccountRepository {
	return r
}

func (r *memoryAccountRepo) Ensure(_ context.Context, params model.CreateAccountParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[params.UUID]; ok {
		return nil
	}
	now := r.clock.Now()
	r.accounts[params.UUID] = &model.PlayerAccount{
		UUID:          params.UUID,
		Name:          params.Name,
		Rank:          params.Rank,
		LastResetDate: model.DateOf(now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return nil
}

func (r *memoryAccountRepo) FindByUUID(_ context.Context, id uuid.UUID) (*model.PlayerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (r *memoryAccountRepo) AddPlayedToday(_ context.Context, id uuid.UUID, seconds int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[id]; ok {
		account.PlayedTodaySeconds += seconds
		account.UpdatedAt = r.clock.Now()
	}
	return nil
}

func (r *memoryAccountRepo) PlayedToday(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[id]; ok {
		return account.PlayedTodaySeconds, nil
	}
	return 0, nil
}

func (r *memoryAccountRepo) Rank(_ context.Context, id uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[id]; ok {
		return account.Rank, nil
	}
	return "", nil
}

func (r *memoryAccountRepo) SetRank(_ context.Context, id uuid.UUID, rank string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[id]; ok {
		account.Rank = rank
		account.UpdatedAt = r.clock.Now()
	}
	return nil
}

func (r *memoryAccountRepo) ResetToday(_ context.Context, id uuid.UUID, day time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil
	}
	target := model.DateOf(day)
	if !account.LastResetDate.Before(target) {
		return nil
	}
	account.PlayedTodaySeconds = 0
	account.LastResetDate = target
	account.UpdatedAt = r.clock.Now()
	return nil
}

func (r *memoryAccountRepo) ListStale(_ context.Context, day time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := model.DateOf(day)
	var stale []uuid.UUID
	for id, account := range r.accounts {
		if account.LastResetDate.Before(target) {
			stale = append(stale, id)
		}
	}
	return stale, nil
}

type memoryBonusRepo struct {
	mu      sync.Mutex
	nextID  int64
	bonuses []model.Bonus
}

func NewMemoryBonusRepository() BonusRepository {
	return &memoryBonusRepo{nextID: 1}
}

func (r *memoryBonusRepo) WithTx(_ *sqlx.Tx) BonusRepository {
	return r
}

func (r *memoryBonusRepo) Insert(_ context.Context, params model.GrantBonusParams) (*model.Bonus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bonus := model.Bonus{
		ID:          r.nextID,
		OwnerUUID:   params.OwnerUUID,
		Kind:        params.Kind,
		Seconds:     params.Seconds,
		GrantedDate: model.DateOf(params.GrantedDate),
		Active:      params.Active,
	}
	r.nextID++
	r.bonuses = append(r.bonuses, bonus)
	return &bonus, nil
}

func (r *memoryBonusRepo) Delete(_ context.Context, id int64) (*model.Bonus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, bonus := range r.bonuses {
		if bonus.ID == id {
			removed := bonus
			r.bonuses = append(r.bonuses[:i], r.bonuses[i+1:]...)
			return &removed, nil
		}
	}
	return nil, nil
}

func (r *memoryBonusRepo) ListByOwner(_ context.Context, owner uuid.UUID) ([]model.Bonus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.Bonus
	for _, bonus := range r.bonuses {
		if bonus.OwnerUUID == owner {
			result = append(result, bonus)
		}
	}
	return result, nil
}

func (r *memoryBonusRepo) ActiveTotal(_ context.Context, owner uuid.UUID, day time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, bonus := range r.bonuses {
		if bonus.OwnerUUID == owner && bonus.ActiveOn(day) {
			total += bonus.Seconds
		}
	}
	return total, nil
}

type memoryHistoryRepo struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries []model.HistoryEntry
}

func NewMemoryHistoryRepository(clock clockwork.Clock) HistoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &memoryHistoryRepo{clock: clock}
}

func (r *memoryHistoryRepo) Append(_ context.Context, owner uuid.UUID, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, model.HistoryEntry{
		ID:        int64(len(r.entries) + 1),
		OwnerUUID: owner,
		Action:    strings.TrimSpace(action),
		At:        r.clock.Now(),
	})
	return nil
}

func (r *memoryHistoryRepo) ListByOwner(_ context.Context, owner uuid.UUID, limit int) ([]model.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.HistoryEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].OwnerUUID == owner {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}
