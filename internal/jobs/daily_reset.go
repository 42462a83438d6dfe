package jobs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/grivyzom/playtimer-server/internal/audit"
	"github.com/grivyzom/playtimer-server/internal/config"
	"github.com/grivyzom/playtimer-server/internal/model"
	"github.com/grivyzom/playtimer-server/internal/repository"
)

// DailyResetJob zeroes every player's daily counter once per day at the
// configured wall-clock time. The check runs on a short interval so a
// process that was down at the reset instant catches up on the next tick
// instead of skipping a day.
type DailyResetJob struct {
	accounts repository.AccountRepository
	history  repository.HistoryRepository
	settings *config.Store
	clock    clockwork.Clock
	interval time.Duration
	done     chan struct{}
}

func NewDailyResetJob(
	accounts repository.AccountRepository,
	history repository.HistoryRepository,
	settings *config.Store,
	clock clockwork.Clock,
) *DailyResetJob {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DailyResetJob{
		accounts: accounts,
		history:  history,
		settings: settings,
		clock:    clock,
		interval: config.ResetCheckInterval,
		done:     make(chan struct{}),
	}
}

func (j *DailyResetJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("daily reset job started")
}

func (j *DailyResetJob) Stop() {
	close(j.done)
	log.Info().Msg("daily reset job stopped")
}

func (j *DailyResetJob) run() {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	j.tick()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.Chan():
			j.tick()
		}
	}
}

// tick resets every account whose counter belongs to a previous reset
// day. Storage guards make the reset idempotent, so ticking repeatedly
// within the same day is harmless.
func (j *DailyResetJob) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := j.clock.Now()
	day := j.currentResetDay(now)

	stale, err := j.accounts.ListStale(ctx, day)
	if err != nil {
		log.Error().Err(err).Msg("failed to list accounts pending daily reset")
		return
	}
	if len(stale) == 0 {
		return
	}

	reset := 0
	for _, player := range stale {
		if err := j.accounts.ResetToday(ctx, player, day); err != nil {
			log.Error().Err(err).Str("player", player.String()).
				Msg("failed to reset daily counter")
			continue
		}
		if err := j.history.Append(ctx, player, "daily_reset"); err != nil {
			log.Error().Err(err).Str("player", player.String()).
				Msg("failed to append history entry")
		}
		reset++
	}

	log.Info().Int("count", reset).Time("day", day).Msg("daily counters reset")
	audit.Log(audit.Event{
		Type:    audit.EventDailyReset,
		Details: map[string]interface{}{"count": reset},
	})
}

// currentResetDay maps an instant to the reset day it belongs to. Before
// today's reset time the previous day is still current, so counters
// reset yesterday are not considered stale.
func (j *DailyResetJob) currentResetDay(now time.Time) time.Time {
	s := j.settings.Current()
	resetPoint := time.Date(now.Year(), now.Month(), now.Day(),
		s.ResetHour, s.ResetMinute, 0, 0, now.Location())

	day := model.DateOf(now)
	if now.Before(resetPoint) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}
