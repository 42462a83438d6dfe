package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout at startup
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	// ResetCheckInterval is how often the daily reset job compares the
	// wall clock against the configured reset time. A fixed short tick
	// tolerates clock adjustments and missed ticks better than computing
	// the offset to the next reset.
	ResetCheckInterval = 1 * time.Minute
)

// Settings file defaults
const (
	DefaultDailyReset       = "04:00"
	DefaultAutoSaveMinutes  = 5
	DefaultMaxDailyBonus    = 7200
	DefaultBypassPermission = "playtimer.bypass"
)
