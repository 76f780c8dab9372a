package dispatch

import "time"

// Config holds scheduler settings loaded from the environment.
type Config struct {
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1m"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"8"`
	ScanBatchSize     int           `env:"SCHEDULER_BATCH_SIZE" envDefault:"100"`
	LockTTL           time.Duration `env:"SCHEDULER_LOCK_TTL" envDefault:"5m"`
	LockKey           string        `env:"SCHEDULER_LOCK_KEY" envDefault:"notifykit:scheduler:scan"`
	ExpirySweep       bool          `env:"SCHEDULER_EXPIRY_SWEEP" envDefault:"true"`
}

// DefaultConfig returns the values used when no environment is loaded.
func DefaultConfig() Config {
	return Config{
		SchedulerInterval: time.Minute,
		WorkerConcurrency: 8,
		ScanBatchSize:     100,
		LockTTL:           5 * time.Minute,
		LockKey:           "notifykit:scheduler:scan",
		ExpirySweep:       true,
	}
}
