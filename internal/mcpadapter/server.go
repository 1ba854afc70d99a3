package mcpadapter

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dshills/lsp-bridge-mcp/internal/capability"
)

const (
	serverName    = "lsp-bridge-mcp"
	serverVersion = "1.0.0"
)

// Server wraps mcp-go's stdio server with the capability facade it
// delegates every tool/resource/prompt call to.
type Server struct {
	mcp    *mcpserver.MCPServer
	facade *capability.Facade
	log    zerolog.Logger
}

// NewServer builds a Server, registering every tool, resource template, and
// prompt up front.
func NewServer(facade *capability.Facade, log zerolog.Logger) *Server {
	s := &Server{
		mcp: mcpserver.NewMCPServer(
			serverName,
			serverVersion,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(true, true),
			mcpserver.WithPromptCapabilities(true),
			mcpserver.WithRecovery(),
		),
		facade: facade,
		log:    log.With().Str("component", "mcpadapter").Logger(),
	}
	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// Serve runs the MCP server on stdio until it exits. stdout carries the
// protocol; every log line goes through s.log, never stdout.
func (s *Server) Serve(_ context.Context) error {
	return mcpserver.ServeStdio(s.mcp)
}

// toolResultJSON wraps a JSON string as a successful tool result.
func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
