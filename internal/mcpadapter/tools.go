package mcpadapter

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(listWorkspacesTool(), s.handleListWorkspaces)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(getDiagnosticsTool(), s.handleGetDiagnostics)
	s.mcp.AddTool(triggerCompilationTool(), s.handleTriggerCompilation)
	s.mcp.AddTool(getHoverTool(), s.handleGetHover)
	s.mcp.AddTool(getDefinitionTool(), s.handleGetDefinition)
}

func (s *Server) handleListWorkspaces(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(s.facade.ListWorkspaces())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal workspaces", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetStatus(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name, _ := req.GetArguments()["name"].(string)

	status, err := s.facade.GetStatus(ctx, name)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("get_status failed", err), nil
	}
	data, err := json.Marshal(status)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal status", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetDiagnostics(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := req.GetArguments()
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcplib.NewToolResultError("name is required"), nil
	}
	path, _ := args["path"].(string)

	result, err := s.facade.GetDiagnostics(ctx, name, path)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("get_diagnostics failed", err), nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal diagnostics", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleTriggerCompilation(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := req.GetArguments()
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcplib.NewToolResultError("name is required"), nil
	}
	workspaceRoot, _ := args["workspace_root"].(string)

	summary, err := s.facade.TriggerCompilation(ctx, name, workspaceRoot)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("trigger_compilation failed", err), nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal summary", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetHover(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := req.GetArguments()
	name, _ := args["name"].(string)
	path, _ := args["path"].(string)
	if name == "" || path == "" {
		return mcplib.NewToolResultError("name and path are required"), nil
	}
	line1, char0, err := parsePosition(args)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("invalid position", err), nil
	}

	text, err := s.facade.GetHover(ctx, name, path, line1, char0)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("get_hover failed", err), nil
	}
	return mcplib.NewToolResultText(text), nil
}

func (s *Server) handleGetDefinition(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := req.GetArguments()
	name, _ := args["name"].(string)
	path, _ := args["path"].(string)
	if name == "" || path == "" {
		return mcplib.NewToolResultError("name and path are required"), nil
	}
	line1, char0, err := parsePosition(args)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("invalid position", err), nil
	}

	hits, err := s.facade.GetDefinition(ctx, name, path, line1, char0)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("get_definition failed", err), nil
	}
	data, err := json.Marshal(hits)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal definition hits", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func parsePosition(args map[string]any) (line1, char0 int, err error) {
	line, ok := args["line"].(float64)
	if !ok {
		return 0, 0, errInvalidPosition("line")
	}
	character, ok := args["character"].(float64)
	if !ok {
		return 0, 0, errInvalidPosition("character")
	}
	return int(line), int(character), nil
}

type errInvalidPosition string

func (e errInvalidPosition) Error() string {
	return "missing or non-numeric " + string(e) + " argument"
}
