package config

import "testing"

type envTestConfig struct {
	Addr    string `env:"CONFIG_TEST_ADDR" envDefault:"127.0.0.1:8080"`
	Enabled bool   `env:"CONFIG_TEST_ENABLED" envDefault:"true"`
}

func TestParseEnvUsesDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, "127.0.0.1:8080")
	}
	if !cfg.Enabled {
		t.Fatal("expected enabled default true")
	}
}

func TestParseEnvReadsEnvironment(t *testing.T) {
	t.Setenv("CONFIG_TEST_ADDR", "0.0.0.0:9999")
	t.Setenv("CONFIG_TEST_ENABLED", "false")

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9999" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, "0.0.0.0:9999")
	}
	if cfg.Enabled {
		t.Fatal("expected enabled false from env")
	}
}
