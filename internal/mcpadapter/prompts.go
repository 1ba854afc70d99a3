package mcpadapter

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerPrompts reproduces the original prototype's standing instruction:
// query the bridge instead of shelling out to the project's build tool.
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(
		mcplib.NewPrompt("compile_check",
			mcplib.WithPromptDescription(
				"Standing guidance for checking compilation status without shelling out",
			),
		),
		s.handleCompileCheckPrompt,
	)
}

func (s *Server) handleCompileCheckPrompt(_ context.Context, _ mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	const instruction = "Use trigger_compilation followed by get_diagnostics to check " +
		"whether a workspace currently compiles. Do not shell out to the project's " +
		"build tool (sbt, cargo, tsc, ...) directly — the bridge's language server " +
		"connection is already warm and its diagnostics are normalized across languages."

	return mcplib.NewGetPromptResult(
		"How to check compilation status",
		[]mcplib.PromptMessage{
			mcplib.NewPromptMessage(mcplib.RoleAssistant, mcplib.NewTextContent(instruction)),
		},
	), nil
}
