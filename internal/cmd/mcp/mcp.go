// Package mcp parses MCP command flags and launches the stdio server.
package mcp

import (
	"context"
	"errors"
	"flag"

	entrypoint "github.com/keepsakehq/keepsake/internal/platform/cmd"
	mcpservice "github.com/keepsakehq/keepsake/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	// ActorUserID is the account the MCP tools act on behalf of.
	ActorUserID    string `env:"KEEPSAKE_MCP_ACTOR_USER_ID"`
	FamilyDBPath   string `env:"KEEPSAKE_MCP_FAMILY_DB_PATH" envDefault:"data/family.db"`
	MemoriesDBPath string `env:"KEEPSAKE_MCP_MEMORIES_DB_PATH" envDefault:"data/memories.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ActorUserID, "actor-user-id", cfg.ActorUserID, "The account id MCP tools act on behalf of")
	fs.StringVar(&cfg.FamilyDBPath, "family-db-path", cfg.FamilyDBPath, "The family SQLite database path")
	fs.StringVar(&cfg.MemoriesDBPath, "memories-db-path", cfg.MemoriesDBPath, "The memories SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP stdio server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(runCtx context.Context) error {
		server, err := mcpservice.New(mcpservice.Config{
			ActorUserID:    cfg.ActorUserID,
			FamilyDBPath:   cfg.FamilyDBPath,
			MemoriesDBPath: cfg.MemoriesDBPath,
		})
		if err != nil {
			return err
		}
		defer server.Close()
		if err := server.Serve(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
