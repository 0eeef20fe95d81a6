package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/keepsakehq/keepsake/internal/services/ai"
	memoriesdomain "github.com/keepsakehq/keepsake/internal/services/memories/domain"
	memoriessqlite "github.com/keepsakehq/keepsake/internal/services/memories/storage/sqlite"
	workerdomain "github.com/keepsakehq/keepsake/internal/services/worker/domain"
	workersqlite "github.com/keepsakehq/keepsake/internal/services/worker/storage/sqlite"
)

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	MemoriesDBPath string
	WorkerDBPath   string
	Consumer       string
	PollInterval   time.Duration
	LeaseTTL       time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
	RetryMaxDelay  time.Duration
}

const (
	defaultMemoriesDB = "data/memories.db"
	defaultWorkerDB   = "data/worker.db"
)

// Run starts worker runtime dependencies and the background processing loop.
//
// The worker shares the memories SQLite file with the server process: the
// outbox is its event source and the milestone table is its sink. Attempt
// bookkeeping lives in a separate worker-owned file.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.MemoriesDBPath) == "" {
		cfg.MemoriesDBPath = defaultMemoriesDB
	}
	if strings.TrimSpace(cfg.WorkerDBPath) == "" {
		cfg.WorkerDBPath = defaultWorkerDB
	}

	for _, path := range []string{cfg.MemoriesDBPath, cfg.WorkerDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
	}

	memoriesStore, err := memoriessqlite.Open(cfg.MemoriesDBPath)
	if err != nil {
		return fmt.Errorf("open memories sqlite store: %w", err)
	}
	defer func() {
		if closeErr := memoriesStore.Close(); closeErr != nil {
			log.Printf("close memories sqlite store: %v", closeErr)
		}
	}()

	workerStore, err := workersqlite.Open(cfg.WorkerDBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer func() {
		if closeErr := workerStore.Close(); closeErr != nil {
			log.Printf("close worker sqlite store: %v", closeErr)
		}
	}()

	detector, err := ai.NewDetectorFromEnv()
	if err != nil {
		return fmt.Errorf("configure milestone detector: %w", err)
	}

	handler := workerdomain.NewMilestoneHandler(detector, memoriesStore, nil)
	loop := New(
		memoriesStore,
		workerStore,
		map[string]EventHandler{
			memoriesdomain.EventMemoryCaptured: handler,
		},
		Config{
			Consumer:      cfg.Consumer,
			PollInterval:  cfg.PollInterval,
			LeaseTTL:      cfg.LeaseTTL,
			MaxAttempts:   cfg.MaxAttempts,
			RetryBackoff:  cfg.RetryBackoff,
			RetryMaxDelay: cfg.RetryMaxDelay,
		},
		nil,
	)

	log.Printf("worker draining outbox from %s", cfg.MemoriesDBPath)
	return loop.Run(ctx)
}
