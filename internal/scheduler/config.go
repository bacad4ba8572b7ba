package scheduler

import (
	"time"

	"github.com/lemur767/assistext-backend-sub001/internal/config"
)

// Config controls the maintenance loop cadence and sweep horizons.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration

	// RetentionMonths bounds how long monthly usage rows are kept.
	RetentionMonths int

	// EngagementRefreshDays is the horizon of conversations whose stored
	// engagement scores get recomputed each run.
	EngagementRefreshDays int

	// EnabledJobs restricts the run to the named jobs; empty enables all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:           time.Hour,
		JobTimeout:            time.Minute,
		RetentionMonths:       24,
		EngagementRefreshDays: 30,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.RetentionMonths <= 0 {
		c.RetentionMonths = defaults.RetentionMonths
	}
	if c.EngagementRefreshDays <= 0 {
		c.EngagementRefreshDays = defaults.EngagementRefreshDays
	}
	return c
}

// ProvideConfig maps application settings onto the scheduler knobs.
func ProvideConfig(cfg config.Config) Config {
	return Config{
		RetentionMonths:       cfg.UsageRetentionMonths,
		EngagementRefreshDays: cfg.EngagementRefreshDays,
	}.withDefaults()
}
