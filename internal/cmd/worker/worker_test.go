package worker

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Consumer != "keepsake-worker" {
		t.Errorf("Consumer = %q, want keepsake-worker", cfg.Consumer)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
}

func TestParseConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("KEEPSAKE_WORKER_CONSUMER", "env-consumer")

	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-consumer", "flag-consumer", "-lease-ttl", "30s"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Consumer != "flag-consumer" {
		t.Errorf("Consumer = %q, want flag override", cfg.Consumer)
	}
	if cfg.LeaseTTL != 30*time.Second {
		t.Errorf("LeaseTTL = %v, want 30s", cfg.LeaseTTL)
	}
}
