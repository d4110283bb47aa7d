package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const engineResourceURI = "codebridge://engine"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			engineResourceURI,
			"Analysis Engine",
			mcplib.WithResourceDescription("Active analysis backend and the registered alternatives"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleEngineResource,
	)
}

type engineInfo struct {
	Backend   string   `json:"backend"`
	Available []string `json:"available"`
}

func (s *Server) handleEngineResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	available := s.cfg.Engines
	if available == nil {
		available = []string{}
	}
	data, err := json.Marshal(engineInfo{Backend: s.cfg.Backend, Available: available})
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
