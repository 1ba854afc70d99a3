package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/lsp-bridge-mcp/internal/lspconn"
	"github.com/dshills/lsp-bridge-mcp/internal/session"
	"github.com/dshills/lsp-bridge-mcp/internal/session/buildsupport"
	"github.com/dshills/lsp-bridge-mcp/internal/watcher"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

const (
	defaultStartTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	shutdownConcurrency    = 4
)

// ProvisionerFor resolves the build-tool provisioning hook for a named
// workspace's config, or nil if that language has none.
type ProvisionerFor func(cfg types.ServerConfig) buildsupport.Provisioner

// Registry owns every session for the process. A single mutex protects the
// name→session map; a session's own internals are guarded inside the
// session, not here.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	configs  map[string]types.ServerConfig

	provisionerFor  ProvisionerFor
	defaultCommand  []string
	log             zerolog.Logger
	startTimeout    time.Duration
	shutdownTimeout time.Duration
	sessionOpts     []session.Option
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithStartTimeout overrides the default 30s per-session start timeout.
func WithStartTimeout(d time.Duration) Option { return func(r *Registry) { r.startTimeout = d } }

// WithShutdownTimeout overrides the default 10s per-session shutdown
// timeout used by ShutdownAll.
func WithShutdownTimeout(d time.Duration) Option { return func(r *Registry) { r.shutdownTimeout = d } }

// WithDefaultCommand sets the LSP child command used to synthesize a config
// for GetOrConnect when no config was pre-registered for that name.
func WithDefaultCommand(cmd []string) Option { return func(r *Registry) { r.defaultCommand = cmd } }

// WithSessionOptions passes through options every session this registry
// creates is built with (timeouts, grace periods).
func WithSessionOptions(opts ...session.Option) Option {
	return func(r *Registry) { r.sessionOpts = opts }
}

// WithProvisionerFor sets the per-config build-tool provisioning hook
// resolver. A nil resolver (the default) means no session ever gets a
// provisioning hook.
func WithProvisionerFor(f ProvisionerFor) Option { return func(r *Registry) { r.provisionerFor = f } }

// New builds a Registry pre-seeded with the given named configs (typically
// loaded from the bridge's configuration file).
func New(configs map[string]types.ServerConfig, log zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		sessions:        make(map[string]*session.Session),
		configs:         make(map[string]types.ServerConfig, len(configs)),
		log:             log,
		startTimeout:    defaultStartTimeout,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for name, cfg := range configs {
		r.configs[name] = cfg
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the named session, starting it on first use. Concurrent
// callers for the same not-yet-started name all observe the same session
// and each wait for its single in-flight Start to finish.
func (r *Registry) Get(ctx context.Context, name string) (*session.Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[name]; ok {
		r.mu.Unlock()
		return s, s.EnsureReady(ctx)
	}
	cfg, ok := r.configs[name]
	if !ok {
		r.mu.Unlock()
		return nil, types.NewError(types.KindUnknownWorkspace, "unknown workspace: "+name)
	}
	s := r.newSessionLocked(name, cfg)
	r.mu.Unlock()

	return s, r.start(ctx, s)
}

// GetOrConnect returns the named session if it exists; otherwise, given a
// workspaceRoot, synthesizes a default config and starts a new session.
// Fails *unknownWorkspace* if name is new and no workspaceRoot was given.
func (r *Registry) GetOrConnect(ctx context.Context, name, workspaceRoot string) (*session.Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[name]; ok {
		r.mu.Unlock()
		return s, s.EnsureReady(ctx)
	}
	if cfg, ok := r.configs[name]; ok {
		s := r.newSessionLocked(name, cfg)
		r.mu.Unlock()
		return s, r.start(ctx, s)
	}
	if workspaceRoot == "" {
		r.mu.Unlock()
		return nil, types.NewError(types.KindUnknownWorkspace, "unknown workspace: "+name)
	}

	cfg := types.ServerConfig{
		Name:          name,
		WorkspaceRoot: workspaceRoot,
		Command:       r.defaultCommand,
		RootURI:       lspconn.PathToURI(workspaceRoot),
	}
	r.configs[name] = cfg
	s := r.newSessionLocked(name, cfg)
	r.mu.Unlock()

	return s, r.start(ctx, s)
}

// newSessionLocked builds and registers a session for name. Caller must
// hold r.mu.
func (r *Registry) newSessionLocked(name string, cfg types.ServerConfig) *session.Session {
	var p buildsupport.Provisioner
	if r.provisionerFor != nil {
		p = r.provisionerFor(cfg)
	}
	s := session.New(cfg, p, r.log, r.sessionOpts...)
	r.sessions[name] = s
	return s
}

func (r *Registry) start(ctx context.Context, s *session.Session) error {
	startCtx, cancel := context.WithTimeout(ctx, r.startTimeout)
	defer cancel()
	return s.Start(startCtx)
}

// List returns every known workspace name, sorted: both sessions already
// started and names with a registered config that has not been connected
// to yet.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(r.configs)+len(r.sessions))
	for name := range r.configs {
		seen[name] = struct{}{}
	}
	for name := range r.sessions {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveSession implements watcher.Resolver: it finds the configured
// workspace whose root is the longest path prefix of path and returns its
// (lazily started) session.
func (r *Registry) ResolveSession(ctx context.Context, path string) (watcher.EditApplier, error) {
	r.mu.Lock()
	var bestName string
	var bestLen int
	for name, cfg := range r.configs {
		root := cfg.WorkspaceRoot
		if root == "" {
			continue
		}
		if path != root && !strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/") {
			continue
		}
		if len(root) > bestLen {
			bestName, bestLen = name, len(root)
		}
	}
	r.mu.Unlock()

	if bestName == "" {
		return nil, types.NewError(types.KindUnknownWorkspace, "no workspace owns path: "+path)
	}
	return r.Get(ctx, bestName)
}

// ShutdownAll gracefully shuts down every started session, bounded by a
// per-session timeout and a bounded fan-out so a large workspace count
// doesn't spawn unbounded concurrent child-process teardowns at once.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, shutdownConcurrency)
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			shutdownCtx, cancel := context.WithTimeout(ctx, r.shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				r.log.Warn().Err(err).Msg("session shutdown reported an error")
			}
			return nil
		})
	}
	return g.Wait()
}
