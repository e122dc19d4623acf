// Package server exposes the secrets facade over the Model Context
// Protocol, on stdio for local use or HTTP (streamable + SSE) behind
// bearer-token auth for shared deployments.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/systmms/awsops/internal/logging"
	"github.com/systmms/awsops/internal/secrets"
)

const (
	serverName = "aws-ops"

	shutdownGracePeriod = 10 * time.Second
)

// Server wires the MCP tool surface to the secrets facade.
type Server struct {
	mcp       *server.MCPServer
	secrets   *secrets.Service
	logger    *logging.Logger
	authToken string
}

// Options configures a Server.
type Options struct {
	// Version is reported to MCP clients during the initialize handshake.
	Version string

	// AuthToken guards HTTP tool traffic. Empty disables the check.
	AuthToken string
}

// New creates a Server with all tools registered.
func New(svc *secrets.Service, logger *logging.Logger, opts Options) *Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	mcpServer := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:       mcpServer,
		secrets:   svc,
		logger:    logger,
		authToken: opts.AuthToken,
	}
	s.registerTools()
	return s
}

// ServeStdio runs the MCP server over stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	s.logger.Info("Starting %s MCP server on stdio", serverName)
	return server.ServeStdio(s.mcp)
}

// ServeHTTP runs the MCP server over HTTP on addr until ctx is canceled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting %s MCP server on http://%s", serverName, addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
