package expiremap

import (
	"time"

	"expire-map/internal/health"
	"expire-map/internal/logs"
	"expire-map/internal/reaper"
	"expire-map/internal/retry"
	"expire-map/internal/store"

	"github.com/google/uuid"
)

type (
	LogLevel     = logs.Level
	LogEntry     = logs.Entry
	RetryPolicy  = retry.Policy
	HealthReport = health.Report
	HealthStatus = health.Status
)

const (
	LogDebug = logs.DEBUG
	LogInfo  = logs.INFO
	LogWarn  = logs.WARN
	LogError = logs.ERROR

	HealthOK       = health.StatusOK
	HealthDegraded = health.StatusDegraded
	HealthCritical = health.StatusCritical
)

// Config controls a Map. Zero fields take the defaults of DefaultConfig,
// except LoadRetry: a zero policy means GetOrLoad tries its loader once.
type Config struct {
	// Name tags log entries; defaults to "expiremap-" plus a random suffix.
	Name string
	// Shards is the number of independently locked store shards.
	Shards int
	// FallbackInterval bounds the reaper's sleep when nothing is scheduled.
	FallbackInterval time.Duration
	// Now is the time source; defaults to time.Now.
	Now func() time.Time

	LogSize  int
	LogLevel LogLevel

	LoadRetry RetryPolicy
}

// DefaultConfig returns the configuration used by NewDefault.
func DefaultConfig() Config {
	return Config{
		Shards:           store.DefaultShards,
		FallbackInterval: reaper.DefaultFallbackInterval,
		Now:              time.Now,
		LogSize:          256,
		LogLevel:         logs.INFO,
		LoadRetry:        retry.DefaultPolicy(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Name == "" {
		c.Name = "expiremap-" + uuid.NewString()[:8]
	}
	if c.Shards <= 0 {
		c.Shards = def.Shards
	}
	if c.FallbackInterval <= 0 {
		c.FallbackInterval = def.FallbackInterval
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	if c.LogSize <= 0 {
		c.LogSize = def.LogSize
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return c
}
