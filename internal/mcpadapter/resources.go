package mcpadapter

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

const diagnosticsURITemplate = "lsp://{workspace}/diagnostics/{path*}"

// registerResources exposes a workspace's diagnostics, addressable per
// workspace and optionally per file. The body is the same JSON the
// get_diagnostics tool returns (types.DiagnosticsResult), not the persisted
// snapshot file's by_file layout.
func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			diagnosticsURITemplate,
			"Workspace diagnostics",
			mcplib.WithTemplateDescription("Current diagnostics for a workspace, or one file within it"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleDiagnosticsResource,
	)
}

func (s *Server) handleDiagnosticsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	workspace, path, err := parseDiagnosticsURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	result, err := s.facade.GetDiagnostics(ctx, workspace, path)
	if err != nil {
		return errorResourceContents(req.Params.URI, err), nil
	}
	data, err := json.Marshal(result)
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

// parseDiagnosticsURI splits "lsp://<workspace>/diagnostics/<path...>" (the
// trailing path segment is "all" or empty for every-file requests) into a
// workspace name and an optional absolute file path.
func parseDiagnosticsURI(raw string) (workspace, path string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", types.Wrap(types.KindIOError, "parsing resource uri", err)
	}
	workspace = u.Host

	rest := strings.TrimPrefix(u.Path, "/diagnostics")
	rest = strings.Trim(rest, "/")
	if rest == "" || rest == "all" {
		return workspace, "", nil
	}
	return workspace, "/" + rest, nil
}

func errorResourceContents(uri string, err error) []mcplib.ResourceContents {
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		},
	}
}
