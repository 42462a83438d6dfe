package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// SessionTracker maps active players to their session-start instant. The
// map is purely in-memory: a process restart loses in-progress sessions,
// which is an accepted limitation.
type SessionTracker struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	starts map[uuid.UUID]time.Time
}

func NewSessionTracker(clock clockwork.Clock) *SessionTracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionTracker{
		clock:  clock,
		starts: make(map[uuid.UUID]time.Time),
	}
}

// Begin records the session start for a player. An existing record is
// overwritten silently: the previous session never ended properly, so
// duplicate join events must not stack.
func (t *SessionTracker) Begin(player uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts[player] = t.clock.Now()
}

// End removes the player's session record and returns the elapsed whole
// seconds, truncated. A player with no record yields 0; End never fails.
func (t *SessionTracker) End(player uuid.UUID) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.starts[player]
	if !ok {
		return 0
	}
	delete(t.starts, player)
	return t.elapsedSince(start)
}

// Active returns the number of in-flight sessions.
func (t *SessionTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.starts)
}

// FlushAll drains every in-flight session as if each player ended their
// session now, returning the elapsed seconds per player. Used on
// shutdown so sessions are flushed rather than silently dropped.
func (t *SessionTracker) FlushAll() map[uuid.UUID]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	flushed := make(map[uuid.UUID]int64, len(t.starts))
	for player, start := range t.starts {
		flushed[player] = t.elapsedSince(start)
	}
	t.starts = make(map[uuid.UUID]time.Time)
	return flushed
}

// Checkpoint returns the elapsed seconds of every in-flight session and
// restarts their clocks at now, so periodic auto-saves bound the loss
// window without ending the sessions.
func (t *SessionTracker) Checkpoint() map[uuid.UUID]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	progress := make(map[uuid.UUID]int64, len(t.starts))
	for player, start := range t.starts {
		progress[player] = t.elapsedSince(start)
		t.starts[player] = now
	}
	return progress
}

func (t *SessionTracker) elapsedSince(start time.Time) int64 {
	elapsed := int64(t.clock.Now().Sub(start) / time.Second)
	if elapsed < 0 {
		// Wall clock stepped backwards mid-session.
		return 0
	}
	return elapsed
}
