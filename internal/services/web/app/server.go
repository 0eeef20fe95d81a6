// Package app wires storage, domain services, and the HTTP server for the
// web process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/keepsakehq/keepsake/internal/platform/timeouts"
	accountsdomain "github.com/keepsakehq/keepsake/internal/services/accounts/domain"
	accountssqlite "github.com/keepsakehq/keepsake/internal/services/accounts/storage/sqlite"
	familydomain "github.com/keepsakehq/keepsake/internal/services/family/domain"
	familysqlite "github.com/keepsakehq/keepsake/internal/services/family/storage/sqlite"
	memoriesdomain "github.com/keepsakehq/keepsake/internal/services/memories/domain"
	memoriessqlite "github.com/keepsakehq/keepsake/internal/services/memories/storage/sqlite"
	"github.com/keepsakehq/keepsake/internal/services/web"
)

// Config defines the inputs for the web server process.
type Config struct {
	HTTPAddr            string
	AccountsDBPath      string
	FamilyDBPath        string
	MemoriesDBPath      string
	TrustForwardedProto bool
}

const (
	defaultAccountsDB = "data/accounts.db"
	defaultFamilyDB   = "data/family.db"
	defaultMemoriesDB = "data/memories.db"
)

// Server hosts the web HTTP server and owns its storage handles.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	closers    []func() error
}

// NewServer opens storage, composes the domain services, and builds a
// ready-to-run HTTP server.
func NewServer(cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if strings.TrimSpace(cfg.AccountsDBPath) == "" {
		cfg.AccountsDBPath = defaultAccountsDB
	}
	if strings.TrimSpace(cfg.FamilyDBPath) == "" {
		cfg.FamilyDBPath = defaultFamilyDB
	}
	if strings.TrimSpace(cfg.MemoriesDBPath) == "" {
		cfg.MemoriesDBPath = defaultMemoriesDB
	}
	for _, path := range []string{cfg.AccountsDBPath, cfg.FamilyDBPath, cfg.MemoriesDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
	}

	server := &Server{httpAddr: httpAddr}

	accountsStore, err := accountssqlite.Open(cfg.AccountsDBPath)
	if err != nil {
		return nil, fmt.Errorf("open accounts sqlite store: %w", err)
	}
	server.closers = append(server.closers, accountsStore.Close)

	familyStore, err := familysqlite.Open(cfg.FamilyDBPath)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("open family sqlite store: %w", err)
	}
	server.closers = append(server.closers, familyStore.Close)

	memoriesStore, err := memoriessqlite.Open(cfg.MemoriesDBPath)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("open memories sqlite store: %w", err)
	}
	server.closers = append(server.closers, memoriesStore.Close)

	grants, err := familydomain.LoadGrantConfigFromEnv(nil)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("load invite grant config: %w", err)
	}

	accounts := accountsdomain.NewService(accountsStore, accountsdomain.Config{})
	family := familydomain.NewService(familyStore, familydomain.Config{Grants: grants})
	memories := memoriesdomain.NewService(memoriesStore, family, memoriesdomain.Config{})

	handler, err := web.NewHandler(web.Services{
		Accounts: accounts,
		Family:   family,
		Memories: memories,
	}, web.Config{TrustForwardedProto: cfg.TrustForwardedProto})
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("build web handler: %w", err)
	}

	server.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	return server, nil
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests are
// drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return errors.New("web server is not configured")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("web api listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases storage handles held by the server.
func (s *Server) Close() {
	if s == nil {
		return
	}
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}
	s.closers = nil
}
