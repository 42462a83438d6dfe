package jobs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/grivyzom/playtimer-server/internal/config"
	"github.com/grivyzom/playtimer-server/internal/service"
)

// AutoSaveJob periodically checkpoints in-flight sessions so a crash
// loses at most the configured auto-save window. It ticks on a fixed
// short interval and consults the settings snapshot each time, so a hot
// reload of auto_save_minutes takes effect without a restart.
type AutoSaveJob struct {
	svc      *service.AccountingService
	settings *config.Store
	clock    clockwork.Clock
	interval time.Duration
	lastSave time.Time
	done     chan struct{}
}

func NewAutoSaveJob(svc *service.AccountingService, settings *config.Store, clock clockwork.Clock) *AutoSaveJob {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AutoSaveJob{
		svc:      svc,
		settings: settings,
		clock:    clock,
		interval: time.Minute,
		lastSave: clock.Now(),
		done:     make(chan struct{}),
	}
}

func (j *AutoSaveJob) Start() {
	go j.run()
	log.Info().Int("auto_save_minutes", j.settings.Current().AutoSaveMinutes).
		Msg("auto-save job started")
}

func (j *AutoSaveJob) Stop() {
	close(j.done)
	log.Info().Msg("auto-save job stopped")
}

func (j *AutoSaveJob) run() {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.Chan():
			j.tick()
		}
	}
}

func (j *AutoSaveJob) tick() {
	window := time.Duration(j.settings.Current().AutoSaveMinutes) * time.Minute
	now := j.clock.Now()
	if now.Sub(j.lastSave) < window {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.svc.Checkpoint(ctx)
	j.lastSave = now
	log.Debug().Msg("auto-save checkpoint complete")
}
