package scheduler

import (
	"os"
	"strconv"
	"time"
)

// Config holds scheduler configuration
type Config struct {
	// Enabled controls whether the scheduler runs
	Enabled bool

	// QueueMaintenanceInterval is how often stuck jobs are reset and
	// completed jobs are purged from the ingestion queue
	QueueMaintenanceInterval time.Duration

	// ContentSweepInterval is how often unreferenced content is collected
	ContentSweepInterval time.Duration

	// QueueDepthSampleInterval is how often queue depth gauges are sampled
	QueueDepthSampleInterval time.Duration

	// Cron schedule overrides (take precedence over intervals when set)
	// Format with seconds: "second minute hour day-of-month month day-of-week"
	QueueMaintenanceSchedule string
	ContentSweepSchedule     string
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	return &Config{
		Enabled:                  getEnvBool("SCHEDULER_ENABLED", true),
		QueueMaintenanceInterval: getEnvDuration("QUEUE_MAINTENANCE_INTERVAL_MS", 10*time.Minute),
		ContentSweepInterval:     getEnvDuration("CONTENT_SWEEP_INTERVAL_MS", time.Hour),
		QueueDepthSampleInterval: getEnvDuration("QUEUE_DEPTH_SAMPLE_INTERVAL_MS", 30*time.Second),
		// Cron schedule overrides (empty string means use interval)
		QueueMaintenanceSchedule: getEnvString("QUEUE_MAINTENANCE_SCHEDULE", ""),
		ContentSweepSchedule:     getEnvString("CONTENT_SWEEP_SCHEDULE", ""),
	}
}

// getEnvBool returns a boolean from an environment variable
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration returns a duration from an environment variable (in milliseconds)
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

// getEnvString returns a string from an environment variable
func getEnvString(key string, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
