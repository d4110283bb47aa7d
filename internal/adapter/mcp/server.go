// Package mcp exposes the analysis engine as Model Context Protocol tools
// over streamable HTTP. Every tool call runs on a fresh engine.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
)

// Analyzer answers one-shot queries against a piece of source text.
type Analyzer interface {
	Diagnostics(ctx context.Context, code string) ([]bridge.Diagnostic, error)
	Completions(ctx context.Context, code string, position int) ([]string, error)
	SignatureHelp(ctx context.Context, code string, position int) (*analysis.SignatureHelp, error)
	Hover(ctx context.Context, code string, position int) (*analysis.Symbol, error)
}

// ServerConfig holds MCP server identity.
type ServerConfig struct {
	Name    string
	Version string
	Backend string   // engine backend the tools run on
	Engines []string // registered backends, for the engine resource
}

// Server wraps the mcp-go server and its streamable HTTP transport.
type Server struct {
	cfg       ServerConfig
	analyzer  Analyzer
	mcpServer *mcpserver.MCPServer
	http      *mcpserver.StreamableHTTPServer
}

// NewServer creates the MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, analyzer Analyzer) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	s.http = mcpserver.NewStreamableHTTPServer(s.mcpServer, mcpserver.WithStateLess(true))
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP handler to mount at /mcp.
func (s *Server) Handler() http.Handler {
	return s.http
}
