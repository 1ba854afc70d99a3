package mcpadapter

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lsp-bridge-mcp/internal/capability"
	"github.com/dshills/lsp-bridge-mcp/internal/registry"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

const nonexistentLSP = "/nonexistent-lsp-binary-xyz"

func newTestServer(t *testing.T, configs map[string]types.ServerConfig) *Server {
	t.Helper()
	reg := registry.New(configs, zerolog.Nop(), registry.WithStartTimeout(2*time.Second))
	facade := capability.New(reg, zerolog.Nop())
	return NewServer(facade, zerolog.Nop())
}

func callReq(args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{Params: mcplib.CallToolParams{Arguments: args}}
}

func textOf(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func TestNewServerBuildsMCPServer(t *testing.T) {
	s := newTestServer(t, nil)
	assert.NotNil(t, s.mcp)
}

func TestHandleListWorkspacesReturnsSortedNames(t *testing.T) {
	s := newTestServer(t, map[string]types.ServerConfig{
		"zzz": {Name: "zzz", WorkspaceRoot: t.TempDir(), Command: []string{nonexistentLSP}},
		"aaa": {Name: "aaa", WorkspaceRoot: t.TempDir(), Command: []string{nonexistentLSP}},
	})

	result, err := s.handleListWorkspaces(context.Background(), callReq(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &names))
	assert.Equal(t, []string{"aaa", "zzz"}, names)
}

func TestHandleGetStatusPropagatesUnknownWorkspaceAsToolError(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleGetStatus(context.Background(), callReq(map[string]any{"name": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "get_status failed")
}

func TestHandleGetDiagnosticsRequiresName(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleGetDiagnostics(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "name is required")
}

func TestHandleTriggerCompilationRequiresName(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleTriggerCompilation(context.Background(), callReq(map[string]any{"workspace_root": "/ws"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "name is required")
}

func TestHandleTriggerCompilationLazyConnectsThenFails(t *testing.T) {
	s := newTestServer(t, nil)
	root := t.TempDir()

	result, err := s.handleTriggerCompilation(context.Background(), callReq(map[string]any{
		"name":           "adhoc",
		"workspace_root": root,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "trigger_compilation failed")
}

func TestHandleGetHoverRequiresNameAndPath(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleGetHover(context.Background(), callReq(map[string]any{"name": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "name and path are required")
}

func TestHandleGetHoverRejectsNonNumericPosition(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleGetHover(context.Background(), callReq(map[string]any{
		"name": "x",
		"path": "/w/App.scala",
		"line": "not-a-number",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "invalid position")
}

func TestHandleGetDefinitionPropagatesUnknownWorkspace(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleGetDefinition(context.Background(), callReq(map[string]any{
		"name":      "missing",
		"path":      "/w/App.scala",
		"line":      float64(18),
		"character": float64(4),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "get_definition failed")
}

func TestParsePositionRequiresBothFields(t *testing.T) {
	_, _, err := parsePosition(map[string]any{"character": float64(4)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line")

	_, _, err = parsePosition(map[string]any{"line": float64(4)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "character")

	line, char, err := parsePosition(map[string]any{"line": float64(12), "character": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, 12, line)
	assert.Equal(t, 3, char)
}

func TestParseDiagnosticsURISplitsWorkspaceAndPath(t *testing.T) {
	workspace, path, err := parseDiagnosticsURI("lsp://metals/diagnostics/w/App.scala")
	require.NoError(t, err)
	assert.Equal(t, "metals", workspace)
	assert.Equal(t, "/w/App.scala", path)

	workspace, path, err = parseDiagnosticsURI("lsp://metals/diagnostics/all")
	require.NoError(t, err)
	assert.Equal(t, "metals", workspace)
	assert.Equal(t, "", path)

	workspace, path, err = parseDiagnosticsURI("lsp://metals/diagnostics")
	require.NoError(t, err)
	assert.Equal(t, "metals", workspace)
	assert.Equal(t, "", path)
}

func TestHandleDiagnosticsResourceUnknownWorkspaceReturnsErrorPayload(t *testing.T) {
	s := newTestServer(t, nil)

	contents, err := s.handleDiagnosticsResource(context.Background(), mcplib.ReadResourceRequest{
		Params: mcplib.ReadResourceParams{URI: "lsp://missing/diagnostics/all"},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	tc, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Contains(t, tc.Text, "error")
}

func TestHandleCompileCheckPromptReturnsStandingInstruction(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleCompileCheckPrompt(context.Background(), mcplib.GetPromptRequest{})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)

	text, ok := result.Messages[0].Content.(mcplib.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "trigger_compilation")
	assert.Contains(t, text.Text, "get_diagnostics")
}
