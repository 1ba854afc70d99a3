package mcpadapter

import (
	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func listWorkspacesTool() mcplib.Tool {
	return mcplib.NewTool("list_workspaces",
		mcplib.WithDescription("List every configured workspace name"),
	)
}

func getStatusTool() mcplib.Tool {
	return mcplib.NewTool("get_status",
		mcplib.WithDescription("Get a workspace's session state and diagnostic counts"),
		mcplib.WithString("name",
			mcplib.Description("Workspace name; omit when exactly one workspace is configured"),
		),
	)
}

func getDiagnosticsTool() mcplib.Tool {
	return mcplib.NewTool("get_diagnostics",
		mcplib.WithDescription("Get a workspace's current compilation diagnostics"),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("Workspace name"),
		),
		mcplib.WithString("path",
			mcplib.Description("Absolute file path; omit to get every known file"),
		),
	)
}

func triggerCompilationTool() mcplib.Tool {
	return mcplib.NewTool("trigger_compilation",
		mcplib.WithDescription(
			"Re-sync open documents and wait for the language server to recompile, "+
				"then return the diagnostics that arrived. Prefer this over shelling "+
				"out to the project's build tool directly.",
		),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("Workspace name"),
		),
		mcplib.WithString("workspace_root",
			mcplib.Description("Absolute workspace root; supplied to lazily connect an unknown workspace"),
		),
	)
}

func getHoverTool() mcplib.Tool {
	return mcplib.NewTool("get_hover",
		mcplib.WithDescription("Get hover information at a position in a file"),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("Workspace name"),
		),
		mcplib.WithString("path",
			mcplib.Required(),
			mcplib.Description("Absolute file path"),
		),
		mcplib.WithNumber("line",
			mcplib.Required(),
			mcplib.Description("1-indexed line number"),
		),
		mcplib.WithNumber("character",
			mcplib.Required(),
			mcplib.Description("0-indexed character offset"),
		),
	)
}

func getDefinitionTool() mcplib.Tool {
	return mcplib.NewTool("get_definition",
		mcplib.WithDescription("Get the symbol definition location(s) at a position in a file"),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("Workspace name"),
		),
		mcplib.WithString("path",
			mcplib.Required(),
			mcplib.Description("Absolute file path"),
		),
		mcplib.WithNumber("line",
			mcplib.Required(),
			mcplib.Description("1-indexed line number"),
		),
		mcplib.WithNumber("character",
			mcplib.Required(),
			mcplib.Description("0-indexed character offset"),
		),
	)
}
