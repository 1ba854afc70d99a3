package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lsp-bridge-mcp/internal/lspconn"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lsp-bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesYAMLWorkspaces(t *testing.T) {
	path := writeYAML(t, `
workspaces:
  - name: metals
    workspace_root: /abs/path
    command: ["metals-server"]
log:
  path: /tmp/lsp-bridge.log
  level: debug
notify_file: /tmp/custom-notify.txt
db_path: /var/lib/lsp-bridge
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Contains(t, cfg.Workspaces, "metals")
	ws := cfg.Workspaces["metals"]
	assert.Equal(t, "/abs/path", ws.WorkspaceRoot)
	assert.Equal(t, []string{"metals-server"}, ws.Command)
	assert.Equal(t, lspconn.PathToURI("/abs/path"), ws.RootURI)

	assert.Equal(t, "/tmp/lsp-bridge.log", cfg.LogPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/custom-notify.txt", cfg.NotifyFile)
	assert.Equal(t, "/var/lib/lsp-bridge", cfg.DBPath)
}

func TestLoadMissingFileIsNotErrorWhenEnvSuppliesWorkspace(t *testing.T) {
	t.Setenv("LSP_BRIDGE_WORKSPACE_ROOT", "/ws/myproj")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	require.Contains(t, cfg.Workspaces, "myproj")
	assert.Equal(t, "/ws/myproj", cfg.Workspaces["myproj"].WorkspaceRoot)
}

func TestEnvOverridesLogAndNotifyFile(t *testing.T) {
	path := writeYAML(t, `
log:
  path: /tmp/original.log
  level: info
notify_file: /tmp/original-notify.txt
`)
	t.Setenv("LSP_BRIDGE_LOG_PATH", "/tmp/override.log")
	t.Setenv("LSP_BRIDGE_LOG_LEVEL", "warn")
	t.Setenv("LSP_BRIDGE_NOTIFY_FILE", "/tmp/override-notify.txt")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.log", cfg.LogPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/override-notify.txt", cfg.NotifyFile)
}

func TestWorkspaceEnvOverrideAddsNewNamedWorkspace(t *testing.T) {
	t.Setenv("LSP_BRIDGE_WORKSPACE_NAME", "adhoc")
	t.Setenv("LSP_BRIDGE_WORKSPACE_ROOT", "/ws/adhoc")
	t.Setenv("LSP_BRIDGE_COMMAND", "metals-server --stdio")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Contains(t, cfg.Workspaces, "adhoc")
	ws := cfg.Workspaces["adhoc"]
	assert.Equal(t, "/ws/adhoc", ws.WorkspaceRoot)
	assert.Equal(t, []string{"metals-server", "--stdio"}, ws.Command)
}

func TestWorkspaceEnvOverrideKeepsExistingCommandWhenNoneGiven(t *testing.T) {
	path := writeYAML(t, `
workspaces:
  - name: metals
    workspace_root: /abs/path
    command: ["metals-server"]
`)
	t.Setenv("LSP_BRIDGE_WORKSPACE_NAME", "metals")
	t.Setenv("LSP_BRIDGE_WORKSPACE_ROOT", "/overridden/root")

	cfg, err := Load(path)
	require.NoError(t, err)

	ws := cfg.Workspaces["metals"]
	assert.Equal(t, "/overridden/root", ws.WorkspaceRoot)
	assert.Equal(t, []string{"metals-server"}, ws.Command)
}

func TestAutoDetectWorkspaceFallsBackToCWDMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/x\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Len(t, cfg.Workspaces, 1)
	for _, ws := range cfg.Workspaces {
		assert.Equal(t, dir, ws.WorkspaceRoot)
	}
}

func TestLoadWithNothingConfiguredYieldsNoWorkspaces(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Workspaces)
}
