package cmd

import (
	"context"
	"flag"
	"testing"
)

type testConfig struct {
	Address string `env:"CMD_TEST_ADDRESS" envDefault:"127.0.0.1:8080"`
	Mode    string `env:"CMD_TEST_MODE" envDefault:"server"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_ADDRESS", "env:9000")
	t.Setenv("CMD_TEST_MODE", "env-mode")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Address, "address", cfg.Address, "address")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "mode")

	if err := ParseArgs(fs, []string{"-address", "flag:9001"}); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	if cfg.Address != "flag:9001" {
		t.Fatalf("address = %q, want flag override", cfg.Address)
	}
	if cfg.Mode != "env-mode" {
		t.Fatalf("mode = %q, want env value", cfg.Mode)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected error for nil config target")
	}
}

func TestRunWithTelemetryRequiresService(t *testing.T) {
	err := RunWithTelemetry(context.Background(), " ", func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for empty service name")
	}
}

func TestRunWithTelemetryRequiresRunFunc(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "server", nil); err == nil {
		t.Fatal("expected error for nil run function")
	}
}

func TestRunWithTelemetryExecutesRun(t *testing.T) {
	t.Setenv("KEEPSAKE_OTEL_ENDPOINT", "")

	ran := false
	err := RunWithTelemetry(context.Background(), "server", func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("run with telemetry: %v", err)
	}
	if !ran {
		t.Fatal("expected run function to execute")
	}
}
