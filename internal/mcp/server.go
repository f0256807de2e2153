package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/dsconv/internal/config"
)

// ServerName and ServerVersion identify dsconv to MCP clients.
const (
	ServerName    = "dsconv-mcp"
	ServerVersion = "1.0.0"
)

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	cache *ScanCache
	mcp   *server.MCPServer
}

// NewMCPServer creates an MCP server exposing the scan and struct tools.
// rootDir resolves relative path arguments; cfg supplies struct defaults.
func NewMCPServer(cfg *config.Config, rootDir string) (*MCPServer, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	cache, err := NewScanCache(DefaultCacheCapacity)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)

	env := &toolEnv{
		cache:   cache,
		rootDir: rootDir,
		emitter: cfg.EmitterOptions(),
	}
	AddScanTool(mcpServer, env)
	AddStructTool(mcpServer, env)

	return &MCPServer{
		cache: cache,
		mcp:   mcpServer,
	}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *MCPServer) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return nil
}
