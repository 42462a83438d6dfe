package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventSessionEnd    EventType = "session_end"
	EventCommitFailed  EventType = "commit_failed"
	EventBonusGranted  EventType = "bonus_granted"
	EventBonusRevoked  EventType = "bonus_revoked"
	EventRankChanged   EventType = "rank_changed"
	EventDailyReset    EventType = "daily_reset"
	EventCheckpoint    EventType = "checkpoint"
	EventConfigReload  EventType = "config_reload"
	EventLimitExceeded EventType = "limit_exceeded"
)

type Event struct {
	Type    EventType
	Player  uuid.UUID
	Details map[string]interface{}
}

func Log(event Event) {
	logger := log.With().
		Str("audit", "playtime").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.Player != uuid.Nil {
		logger = logger.With().Str("player", event.Player.String()).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("playtime audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}
