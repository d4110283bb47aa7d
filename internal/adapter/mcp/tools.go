package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	cbotel "github.com/Strob0t/codebridge/internal/adapter/otel"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
)

// Tool names.
const (
	ToolDiagnostics   = "diagnostics"
	ToolCompletions   = "completions"
	ToolSignatureHelp = "signature_help"
	ToolHover         = "hover"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.diagnosticsTool(),
		s.positionTool(ToolCompletions, "List completion labels available at a position", s.handleCompletions),
		s.positionTool(ToolSignatureHelp, "Resolve the signature of the call enclosing a position", s.handleSignatureHelp),
		s.positionTool(ToolHover, "Describe the symbol at a position", s.handleHover),
	)
}

func codeArg() mcplib.ToolOption {
	return mcplib.WithString("code",
		mcplib.Required(),
		mcplib.Description("Complete source text of the document"),
	)
}

func (s *Server) diagnosticsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(ToolDiagnostics,
		mcplib.WithDescription("Analyze source text and return its diagnostics (1-based lines and columns)"),
		codeArg(),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.traced(ToolDiagnostics, s.handleDiagnostics)}
}

func (s *Server) positionTool(name, description string, handler mcpserver.ToolHandlerFunc) mcpserver.ServerTool {
	tool := mcplib.NewTool(name,
		mcplib.WithDescription(description),
		codeArg(),
		mcplib.WithNumber("position",
			mcplib.Required(),
			mcplib.Description("0-based character offset (UTF-16 code units) into code"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.traced(name, handler)}
}

func (s *Server) traced(name string, next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
		ctx, span := cbotel.StartToolSpan(ctx, name)
		res, err := next(ctx, req)
		cbotel.EndSpan(span, err)
		return res, err
	}
}

func (s *Server) handleDiagnostics(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	code, err := req.RequireString("code")
	if err != nil {
		return mcplib.NewToolResultError("code is required"), nil
	}
	diags, err := s.analyzer.Diagnostics(ctx, code)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("analysis failed", err), nil
	}
	return toolResultJSON(bridge.DiagnosticsPush(diags).Data)
}

func (s *Server) handleCompletions(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	code, pos, errRes := positionArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	labels, err := s.analyzer.Completions(ctx, code, pos)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("completion failed", err), nil
	}
	return toolResultJSON(bridge.CompletionResult(labels, nil).Data)
}

func (s *Server) handleSignatureHelp(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	code, pos, errRes := positionArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	help, err := s.analyzer.SignatureHelp(ctx, code, pos)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("signature help failed", err), nil
	}
	return toolResultJSON(bridge.SignatureResult(help, nil).Data)
}

func (s *Server) handleHover(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	code, pos, errRes := positionArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	sym, err := s.analyzer.Hover(ctx, code, pos)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("hover failed", err), nil
	}
	return toolResultJSON(bridge.HoverResult(sym, nil).Data)
}

func positionArgs(req mcplib.CallToolRequest) (string, int, *mcplib.CallToolResult) { //nolint:gocritic // hugeParam: mcp-go request type
	code, err := req.RequireString("code")
	if err != nil {
		return "", 0, mcplib.NewToolResultError("code is required")
	}
	pos, err := req.RequireInt("position")
	if err != nil {
		return "", 0, mcplib.NewToolResultError("position is required")
	}
	return code, pos, nil
}

// toolResultJSON encodes v as the text content of a successful result.
func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
