package capability

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/dshills/lsp-bridge-mcp/internal/lspconn"
	"github.com/dshills/lsp-bridge-mcp/internal/session"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

// Registry is the dependency the facade resolves every named workspace
// through — satisfied by *registry.Registry.
type Registry interface {
	Get(ctx context.Context, name string) (*session.Session, error)
	GetOrConnect(ctx context.Context, name, workspaceRoot string) (*session.Session, error)
	List() []string
}

// Facade is the single upstream-facing object per process. Every operation
// resolves a named session through the registry, waits for it to become
// ready, and dispatches.
type Facade struct {
	reg Registry
	log zerolog.Logger
}

// New builds a Facade over reg.
func New(reg Registry, log zerolog.Logger) *Facade {
	return &Facade{reg: reg, log: log.With().Str("component", "capability").Logger()}
}

// ListWorkspaces returns every known workspace name, sorted.
func (f *Facade) ListWorkspaces() []string {
	names := f.reg.List()
	sort.Strings(names)
	return names
}

// resolveName applies the single-workspace convenience: when name is
// omitted and exactly one workspace is known, that one is used.
func (f *Facade) resolveName(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	names := f.reg.List()
	if len(names) == 1 {
		return names[0], nil
	}
	return "", types.NewError(types.KindUnknownWorkspace, "name is required: multiple or no workspaces configured")
}

// GetStatus returns the named session's lifecycle and diagnostics snapshot.
// name may be empty if exactly one workspace is configured.
func (f *Facade) GetStatus(ctx context.Context, name string) (types.Status, error) {
	resolved, err := f.resolveName(name)
	if err != nil {
		return types.Status{}, err
	}
	sess, err := f.reg.Get(ctx, resolved)
	if err != nil {
		return types.Status{}, err
	}
	return sess.Status(), nil
}

// GetDiagnostics returns the named session's current diagnostics: every
// known file when path is empty, or just that one file's entry otherwise.
func (f *Facade) GetDiagnostics(ctx context.Context, name, path string) (types.DiagnosticsResult, error) {
	sess, err := f.reg.Get(ctx, name)
	if err != nil {
		return types.DiagnosticsResult{}, err
	}

	store := sess.Diagnostics()
	result := types.DiagnosticsResult{Workspace: name, Summary: store.Summary()}
	if path == "" {
		result.Files = store.GetAll()
		return result, nil
	}

	uri := lspconn.PathToURI(path)
	result.Files = []types.FileDiagnostics{{URI: uri, Diagnostics: store.GetForFile(uri)}}
	return result, nil
}

// TriggerCompilation re-syncs every open document in the named session and
// waits out the grace period, returning whatever diagnostics have arrived.
// If the session isn't yet known, workspaceRoot (when non-empty) lazily
// connects it.
func (f *Facade) TriggerCompilation(ctx context.Context, name, workspaceRoot string) (types.DiagnosticsSummary, error) {
	sess, err := f.reg.GetOrConnect(ctx, name, workspaceRoot)
	if err != nil {
		return types.DiagnosticsSummary{}, err
	}
	return sess.TriggerCompilation(ctx)
}

// GetHover returns hover text at a 1-indexed line / 0-indexed character.
func (f *Facade) GetHover(ctx context.Context, name, path string, line1, char0 int) (string, error) {
	sess, err := f.reg.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return sess.Hover(ctx, path, line1, char0)
}

// GetDefinition returns the symbol definitions at a 1-indexed line /
// 0-indexed character.
func (f *Facade) GetDefinition(ctx context.Context, name, path string, line1, char0 int) ([]types.DefinitionHit, error) {
	sess, err := f.reg.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return sess.Definition(ctx, path, line1, char0)
}
