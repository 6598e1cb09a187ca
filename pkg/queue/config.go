package queue

import "time"

// Config holds the configuration for the job queue.
type Config struct {
	PollInterval    time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	LockTimeout     time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxConcurrent   int           `env:"QUEUE_MAX_CONCURRENT" envDefault:"10"`
	MaxAttempts     int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
}
