// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"errors"
	"flag"
	"time"

	entrypoint "github.com/keepsakehq/keepsake/internal/platform/cmd"
	workerapp "github.com/keepsakehq/keepsake/internal/services/worker/app"
)

// Config holds worker command configuration.
type Config struct {
	MemoriesDBPath string        `env:"KEEPSAKE_WORKER_MEMORIES_DB_PATH" envDefault:"data/memories.db"`
	WorkerDBPath   string        `env:"KEEPSAKE_WORKER_DB_PATH" envDefault:"data/worker.db"`
	Consumer       string        `env:"KEEPSAKE_WORKER_CONSUMER" envDefault:"keepsake-worker"`
	PollInterval   time.Duration `env:"KEEPSAKE_WORKER_POLL_INTERVAL" envDefault:"5s"`
	LeaseTTL       time.Duration `env:"KEEPSAKE_WORKER_LEASE_TTL" envDefault:"1m"`
	MaxAttempts    int           `env:"KEEPSAKE_WORKER_MAX_ATTEMPTS" envDefault:"5"`
	RetryBackoff   time.Duration `env:"KEEPSAKE_WORKER_RETRY_BACKOFF" envDefault:"10s"`
	RetryMaxDelay  time.Duration `env:"KEEPSAKE_WORKER_RETRY_MAX_DELAY" envDefault:"10m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.MemoriesDBPath, "memories-db-path", cfg.MemoriesDBPath, "The memories SQLite database path (outbox source)")
	fs.StringVar(&cfg.WorkerDBPath, "worker-db-path", cfg.WorkerDBPath, "The worker SQLite database path (attempt records)")
	fs.StringVar(&cfg.Consumer, "consumer", cfg.Consumer, "Outbox consumer name")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Outbox poll interval")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Outbox lease duration")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Maximum processing attempts before dead-letter")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "Maximum retry delay")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(runCtx context.Context) error {
		err := workerapp.Run(runCtx, workerapp.RuntimeConfig{
			MemoriesDBPath: cfg.MemoriesDBPath,
			WorkerDBPath:   cfg.WorkerDBPath,
			Consumer:       cfg.Consumer,
			PollInterval:   cfg.PollInterval,
			LeaseTTL:       cfg.LeaseTTL,
			MaxAttempts:    cfg.MaxAttempts,
			RetryBackoff:   cfg.RetryBackoff,
			RetryMaxDelay:  cfg.RetryMaxDelay,
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
