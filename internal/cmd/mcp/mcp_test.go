package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.FamilyDBPath != "data/family.db" {
		t.Errorf("FamilyDBPath = %q, want data/family.db", cfg.FamilyDBPath)
	}
	if cfg.ActorUserID != "" {
		t.Errorf("ActorUserID = %q, want empty default", cfg.ActorUserID)
	}
}

func TestParseConfigActorFromFlag(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-actor-user-id", "user-42"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.ActorUserID != "user-42" {
		t.Errorf("ActorUserID = %q, want user-42", cfg.ActorUserID)
	}
}
