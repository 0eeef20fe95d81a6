// Package service assembles and runs the MCP server over stdio.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	familydomain "github.com/keepsakehq/keepsake/internal/services/family/domain"
	familysqlite "github.com/keepsakehq/keepsake/internal/services/family/storage/sqlite"
	mcpdomain "github.com/keepsakehq/keepsake/internal/services/mcp/domain"
	memoriesdomain "github.com/keepsakehq/keepsake/internal/services/memories/domain"
	memoriessqlite "github.com/keepsakehq/keepsake/internal/services/memories/storage/sqlite"
)

const (
	serverName = "keepsake-mcp"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Config defines the inputs for the MCP server process.
type Config struct {
	// ActorUserID is the account the MCP process acts on behalf of. Tool
	// calls inherit its family memberships and role permissions.
	ActorUserID    string
	FamilyDBPath   string
	MemoriesDBPath string
}

const (
	defaultFamilyDB   = "data/family.db"
	defaultMemoriesDB = "data/memories.db"
)

// Server hosts the MCP server and owns its storage handles.
type Server struct {
	mcpServer *mcp.Server
	closers   []func() error
}

// New opens storage, composes the domain services, and registers the MCP
// tools. Milestone data is read-only here; detection stays with the worker.
func New(cfg Config) (*Server, error) {
	actorID := strings.TrimSpace(cfg.ActorUserID)
	if actorID == "" {
		return nil, errors.New("actor user id is required")
	}
	if strings.TrimSpace(cfg.FamilyDBPath) == "" {
		cfg.FamilyDBPath = defaultFamilyDB
	}
	if strings.TrimSpace(cfg.MemoriesDBPath) == "" {
		cfg.MemoriesDBPath = defaultMemoriesDB
	}
	for _, path := range []string{cfg.FamilyDBPath, cfg.MemoriesDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
	}

	server := &Server{}

	familyStore, err := familysqlite.Open(cfg.FamilyDBPath)
	if err != nil {
		return nil, fmt.Errorf("open family sqlite store: %w", err)
	}
	server.closers = append(server.closers, familyStore.Close)

	memoriesStore, err := memoriessqlite.Open(cfg.MemoriesDBPath)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("open memories sqlite store: %w", err)
	}
	server.closers = append(server.closers, memoriesStore.Close)

	// Grant signing stays with the web process; MCP never issues invites.
	family := familydomain.NewService(familyStore, familydomain.Config{})
	memories := memoriesdomain.NewService(memoriesStore, family, memoriesdomain.Config{})

	actor := mcpdomain.Actor(func() string { return actorID })
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(mcpServer, mcpdomain.FamilyListTool(), mcpdomain.FamilyListHandler(family, actor))
	mcp.AddTool(mcpServer, mcpdomain.MemoryCaptureTool(), mcpdomain.MemoryCaptureHandler(memories, actor))
	mcp.AddTool(mcpServer, mcpdomain.MemoryListTool(), mcpdomain.MemoryListHandler(memories, actor))
	mcp.AddTool(mcpServer, mcpdomain.MilestoneListTool(), mcpdomain.MilestoneListHandler(memories, actor))

	server.mcpServer = mcpServer
	return server, nil
}

// Serve runs the MCP server on stdio until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("mcp server is not configured")
	}
	log.Printf("mcp serving %s %s on stdio", serverName, serverVersion)
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
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
