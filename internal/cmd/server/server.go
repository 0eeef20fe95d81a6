// Package server parses server command flags and launches the web runtime.
package server

import (
	"context"
	"errors"
	"flag"

	"golang.org/x/sync/errgroup"

	entrypoint "github.com/keepsakehq/keepsake/internal/platform/cmd"
	webapp "github.com/keepsakehq/keepsake/internal/services/web/app"
	workerapp "github.com/keepsakehq/keepsake/internal/services/worker/app"
)

// Config holds server command configuration.
type Config struct {
	HTTPAddr            string `env:"KEEPSAKE_SERVER_HTTP_ADDR" envDefault:":8080"`
	AccountsDBPath      string `env:"KEEPSAKE_SERVER_ACCOUNTS_DB_PATH" envDefault:"data/accounts.db"`
	FamilyDBPath        string `env:"KEEPSAKE_SERVER_FAMILY_DB_PATH" envDefault:"data/family.db"`
	MemoriesDBPath      string `env:"KEEPSAKE_SERVER_MEMORIES_DB_PATH" envDefault:"data/memories.db"`
	TrustForwardedProto bool   `env:"KEEPSAKE_SERVER_TRUST_FORWARDED_PROTO" envDefault:"false"`
	// EmbedWorker runs the outbox worker inside the server process for
	// single-binary deployments.
	EmbedWorker bool `env:"KEEPSAKE_SERVER_EMBED_WORKER" envDefault:"false"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP listen address")
	fs.StringVar(&cfg.AccountsDBPath, "accounts-db-path", cfg.AccountsDBPath, "The accounts SQLite database path")
	fs.StringVar(&cfg.FamilyDBPath, "family-db-path", cfg.FamilyDBPath, "The family SQLite database path")
	fs.StringVar(&cfg.MemoriesDBPath, "memories-db-path", cfg.MemoriesDBPath, "The memories SQLite database path")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Trust X-Forwarded-Proto for cookie security")
	fs.BoolVar(&cfg.EmbedWorker, "embed-worker", cfg.EmbedWorker, "Run the outbox worker in-process")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the web runtime and, when configured, the embedded worker.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(runCtx context.Context) error {
		server, err := webapp.NewServer(webapp.Config{
			HTTPAddr:            cfg.HTTPAddr,
			AccountsDBPath:      cfg.AccountsDBPath,
			FamilyDBPath:        cfg.FamilyDBPath,
			MemoriesDBPath:      cfg.MemoriesDBPath,
			TrustForwardedProto: cfg.TrustForwardedProto,
		})
		if err != nil {
			return err
		}
		defer server.Close()

		group, groupCtx := errgroup.WithContext(runCtx)
		group.Go(func() error {
			return server.ListenAndServe(groupCtx)
		})
		if cfg.EmbedWorker {
			group.Go(func() error {
				err := workerapp.Run(groupCtx, workerapp.RuntimeConfig{
					MemoriesDBPath: cfg.MemoriesDBPath,
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
		return group.Wait()
	})
}
