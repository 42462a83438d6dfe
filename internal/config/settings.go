package config

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
)

// Settings is an immutable snapshot of the game-facing configuration.
// Readers always see a fully-formed version; Reload swaps the whole
// snapshot atomically.
type Settings struct {
	DailyReset       string
	ResetHour        int
	ResetMinute      int
	AutoSaveMinutes  int
	GroupLimits      map[string]int64
	BypassPermission string
	DailyEnabled     bool
	PermanentEnabled bool
	MaxDailySeconds  int64
	NotifyOnBonus    bool
}

// LimitForGroup returns the base allowance in seconds for a rank.
// Lookup is case-insensitive; an unknown rank maps to 0, the unlimited
// sentinel, so a misconfigured rank never locks players out.
func (s *Settings) LimitForGroup(group string) int64 {
	return s.GroupLimits[strings.ToLower(group)]
}

// settingsFile mirrors the on-disk YAML layout. Pointer fields
// distinguish "absent" from an explicit false/zero so defaults apply.
type settingsFile struct {
	General struct {
		DailyReset      *string `yaml:"daily_reset"`
		AutoSaveMinutes *int    `yaml:"auto_save_minutes"`
	} `yaml:"general"`
	Limits struct {
		Groups           map[string]int64 `yaml:"groups"`
		BypassPermission *string          `yaml:"bypass_permission"`
	} `yaml:"limits"`
	Bonuses struct {
		DailyEnabled     *bool  `yaml:"enable_daily_bonus"`
		PermanentEnabled *bool  `yaml:"enable_permanent_bonus"`
		MaxDailySeconds  *int64 `yaml:"max_daily_bonus"`
		NotifyOnBonus    *bool  `yaml:"notify_on_bonus"`
	} `yaml:"bonuses"`
}

// DefaultSettings returns the documented defaults used when the settings
// file is missing or a section is absent.
func DefaultSettings() *Settings {
	return &Settings{
		DailyReset:       DefaultDailyReset,
		ResetHour:        4,
		ResetMinute:      0,
		AutoSaveMinutes:  DefaultAutoSaveMinutes,
		GroupLimits:      map[string]int64{},
		BypassPermission: DefaultBypassPermission,
		DailyEnabled:     true,
		PermanentEnabled: true,
		MaxDailySeconds:  DefaultMaxDailyBonus,
		NotifyOnBonus:    true,
	}
}

// ParseSettings builds a Settings snapshot from raw YAML. Malformed
// optional values fall back to defaults with a logged warning; only
// unparseable YAML is an error.
func ParseSettings(data []byte) (*Settings, error) {
	var raw settingsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Config("settings file is not valid YAML").WithCause(err)
	}

	s := DefaultSettings()

	if raw.General.DailyReset != nil {
		hour, minute, err := parseResetTime(*raw.General.DailyReset)
		if err != nil {
			log.Warn().Err(err).Str("daily_reset", *raw.General.DailyReset).
				Msgf("invalid daily_reset, using default %s", DefaultDailyReset)
		} else {
			s.DailyReset = *raw.General.DailyReset
			s.ResetHour = hour
			s.ResetMinute = minute
		}
	}
	if raw.General.AutoSaveMinutes != nil {
		if *raw.General.AutoSaveMinutes <= 0 {
			log.Warn().Int("auto_save_minutes", *raw.General.AutoSaveMinutes).
				Msg("auto_save_minutes must be positive, using default")
		} else {
			s.AutoSaveMinutes = *raw.General.AutoSaveMinutes
		}
	}

	for group, seconds := range raw.Limits.Groups {
		if seconds < 0 {
			log.Warn().Str("group", group).Int64("seconds", seconds).
				Msg("negative group limit ignored")
			continue
		}
		s.GroupLimits[strings.ToLower(group)] = seconds
	}
	if raw.Limits.BypassPermission != nil && *raw.Limits.BypassPermission != "" {
		s.BypassPermission = *raw.Limits.BypassPermission
	}

	if raw.Bonuses.DailyEnabled != nil {
		s.DailyEnabled = *raw.Bonuses.DailyEnabled
	}
	if raw.Bonuses.PermanentEnabled != nil {
		s.PermanentEnabled = *raw.Bonuses.PermanentEnabled
	}
	if raw.Bonuses.MaxDailySeconds != nil {
		if *raw.Bonuses.MaxDailySeconds <= 0 {
			log.Warn().Int64("max_daily_bonus", *raw.Bonuses.MaxDailySeconds).
				Msg("max_daily_bonus must be positive, using default")
		} else {
			s.MaxDailySeconds = *raw.Bonuses.MaxDailySeconds
		}
	}
	if raw.Bonuses.NotifyOnBonus != nil {
		s.NotifyOnBonus = *raw.Bonuses.NotifyOnBonus
	}

	return s, nil
}

func parseResetTime(v string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(v, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("expected HH:mm, got %q", v)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day out of range: %q", v)
	}
	return hour, minute, nil
}

// Store holds the current Settings snapshot and supports atomic hot
// reload. In-flight operations keep whichever snapshot they started with.
type Store struct {
	path string
	cur  atomic.Pointer[Settings]
}

// NewStore loads the settings file and returns a store. A missing file
// resolves to the documented defaults with a logged warning; it is never
// fatal.
func NewStore(path string) (*Store, error) {
	st := &Store{path: path}
	if err := st.Reload(); err != nil {
		return nil, err
	}
	return st, nil
}

// Current returns the active settings snapshot.
func (s *Store) Current() *Settings {
	return s.cur.Load()
}

// Reload re-reads the settings file and swaps the snapshot. On error the
// previous snapshot stays active.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", s.path).Msg("settings file not found, using defaults")
			s.cur.Store(DefaultSettings())
			return nil
		}
		return apperrors.Config("failed to read settings file").WithCause(err)
	}

	parsed, err := ParseSettings(data)
	if err != nil {
		return err
	}
	s.cur.Store(parsed)
	log.Info().Str("path", s.path).
		Int("groups", len(parsed.GroupLimits)).
		Str("daily_reset", parsed.DailyReset).
		Msg("settings loaded")
	return nil
}
