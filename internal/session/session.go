package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/lsp-bridge-mcp/internal/diagnostics"
	"github.com/dshills/lsp-bridge-mcp/internal/document"
	"github.com/dshills/lsp-bridge-mcp/internal/lspconn"
	"github.com/dshills/lsp-bridge-mcp/internal/rpc"
	"github.com/dshills/lsp-bridge-mcp/internal/rpcio"
	"github.com/dshills/lsp-bridge-mcp/internal/session/buildsupport"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

const (
	defaultStartTimeout   = 30 * time.Second
	defaultCallTimeout    = 15 * time.Second
	defaultCompileGrace   = 3 * time.Second
)

// Session owns one child LSP process for one configured workspace. All
// exported methods are safe for concurrent use; the lifecycle state machine
// serializes start/shutdown transitions, and internally document/diagnostics
// stores carry their own locks.
type Session struct {
	cfg         types.ServerConfig
	provisioner buildsupport.Provisioner
	log         zerolog.Logger

	startTimeout time.Duration
	callTimeout  time.Duration
	compileGrace time.Duration

	docs  *document.Store
	diags *diagnostics.Store

	mu    sync.Mutex
	state types.SessionState
	err   error // set when state == dead, explains why

	serverCaps json.RawMessage // capabilities from the initialize result

	cmd      *exec.Cmd
	peer     *rpc.Peer
	readyC   chan struct{}
	deadC    chan struct{}
	deadOnce sync.Once
}

func (s *Session) closeDead() {
	s.deadOnce.Do(func() { close(s.deadC) })
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithStartTimeout overrides the default 30s initialize handshake timeout.
func WithStartTimeout(d time.Duration) Option { return func(s *Session) { s.startTimeout = d } }

// WithCallTimeout overrides the default 15s per-call timeout used by
// hover/definition/shutdown.
func WithCallTimeout(d time.Duration) Option { return func(s *Session) { s.callTimeout = d } }

// WithCompileGrace overrides the default 3s triggerCompilation grace
// period.
func WithCompileGrace(d time.Duration) Option { return func(s *Session) { s.compileGrace = d } }

// New builds an unstarted Session. provisioner may be nil if the language
// has no provisioning hook.
func New(cfg types.ServerConfig, provisioner buildsupport.Provisioner, log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		cfg:          cfg,
		provisioner:  provisioner,
		log:          log.With().Str("workspace", cfg.Name).Logger(),
		startTimeout: defaultStartTimeout,
		callTimeout:  defaultCallTimeout,
		compileGrace: defaultCompileGrace,
		docs:         document.NewStore(),
		diags:        diagnostics.NewStore(),
		state:        types.SessionUnstarted,
		readyC:       make(chan struct{}),
		deadC:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status snapshots the session for the capability facade's getStatus.
func (s *Session) Status() types.Status {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	sum := s.diags.Summary()
	return types.Status{
		Name:          s.cfg.Name,
		State:         state,
		ErrorCount:    sum.Errors,
		WarningCount:  sum.Warnings,
		OpenDocuments: len(s.docs.OpenURIs()),
	}
}

// Diagnostics exposes the session's diagnostics store to the capability
// facade's getDiagnostics operation.
func (s *Session) Diagnostics() *diagnostics.Store {
	return s.diags
}

func (s *Session) setState(state types.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) setDead(cause error) {
	s.mu.Lock()
	if s.state == types.SessionDead {
		s.mu.Unlock()
		return
	}
	s.state = types.SessionDead
	s.err = cause
	s.mu.Unlock()
	s.closeDead()

	s.docs.MarkAllClosed()
	s.diags.Reset()
	s.log.Error().Err(cause).Msg("session is dead")
}

// EnsureReady blocks until the session reaches ready or dead, or ctx ends.
// Every capability operation calls this first so a session still finishing
// its initialize handshake is waited on rather than rejected outright.
func (s *Session) EnsureReady(ctx context.Context) error {
	select {
	case <-s.readyC:
		if s.State() == types.SessionDead {
			return s.deadError()
		}
		return nil
	case <-s.deadC:
		return s.deadError()
	case <-ctx.Done():
		return types.Wrap(types.KindTimeout, "waiting for session to become ready", ctx.Err())
	}
}

func (s *Session) deadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.Wrap(types.KindUnavailable, "session is dead", s.err)
}

// Start spawns the child process, runs the build-tool provisioning hook
// (best-effort), and drives the initialize handshake. It blocks until the
// session is ready, fails to start, or ctx ends.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != types.SessionUnstarted {
		s.mu.Unlock()
		return types.NewError(types.KindConfigError, "session already started")
	}
	s.state = types.SessionStarting
	s.mu.Unlock()

	if s.provisioner != nil {
		if err := s.provisioner.Provision(ctx, s.cfg.WorkspaceRoot); err != nil {
			s.log.Warn().Err(err).Str("hook", s.provisioner.Name()).
				Msg("build provisioning hook failed, continuing anyway")
		}
	}

	if err := s.spawn(); err != nil {
		s.setDead(err)
		return err
	}

	go func() {
		runErr := s.peer.Run(context.Background())
		s.mu.Lock()
		shuttingDown := s.state == types.SessionShuttingDown
		s.mu.Unlock()
		if !shuttingDown {
			s.setDead(runErr)
		}
	}()

	initCtx, cancel := context.WithTimeout(ctx, s.startTimeout)
	defer cancel()
	if err := s.handshake(initCtx); err != nil {
		s.setDead(err)
		return err
	}

	s.setState(types.SessionReady)
	close(s.readyC)
	return nil
}

func (s *Session) spawn() error {
	if len(s.cfg.Command) == 0 {
		return types.NewError(types.KindConfigError, "server config has no command")
	}

	cmd := exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...)
	cmd.Dir = s.cfg.WorkspaceRoot

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return types.Wrap(types.KindSpawnError, "opening child stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return types.Wrap(types.KindSpawnError, "opening child stdout", err)
	}
	cmd.Stderr = newStderrLogWriter(s.log)

	if err := cmd.Start(); err != nil {
		return types.Wrap(types.KindSpawnError, fmt.Sprintf("starting %v", s.cfg.Command), err)
	}

	s.cmd = cmd
	s.peer = rpc.New(rpcio.NewReader(stdout), rpcio.NewWriter(stdin), s.log)
	s.registerHandlers()
	return nil
}

func (s *Session) registerHandlers() {
	s.peer.OnNotification("textDocument/publishDiagnostics", s.handlePublishDiagnostics)
	s.peer.OnNotification("window/logMessage", s.handleLogMessage)
	s.peer.OnNotification("window/showMessage", s.handleLogMessage)
	s.peer.OnNotification("$/progress", func(string, json.RawMessage) {})
	s.peer.OnNotification("metals/status", func(string, json.RawMessage) {})

	s.peer.OnRequest("window/workDoneProgress/create", func(context.Context, string, json.RawMessage) (any, *rpc.RPCError) {
		return nil, nil
	})
	s.peer.OnRequest("client/registerCapability", func(context.Context, string, json.RawMessage) (any, *rpc.RPCError) {
		return nil, nil
	})
	s.peer.OnRequest("workspace/configuration", func(_ context.Context, _ string, params json.RawMessage) (any, *rpc.RPCError) {
		var req struct {
			Items []json.RawMessage `json:"items"`
		}
		_ = json.Unmarshal(params, &req)
		result := make([]any, len(req.Items))
		return result, nil
	})
}

func (s *Session) handshake(ctx context.Context) error {
	pid := os.Getpid()
	params := lspconn.InitializeParams{
		ProcessID: &pid,
		RootURI:   s.cfg.RootURI,
		WorkspaceFolders: []lspconn.WorkspaceFolder{
			{URI: s.cfg.RootURI, Name: s.cfg.Name},
		},
		Capabilities: lspconn.ClientCapabilities{
			TextDocument: lspconn.TextDocumentClientCapabilities{
				Synchronization: lspconn.SyncCapability{DidSave: true},
				Hover:           lspconn.HoverCapability{ContentFormat: []string{"markdown", "plaintext"}},
			},
			Workspace: lspconn.WorkspaceClientCapabilities{
				Configuration:    true,
				WorkspaceFolders: true,
			},
		},
	}

	var result lspconn.InitializeResult
	if err := s.peer.Call(ctx, "initialize", params, &result); err != nil {
		return err
	}
	s.mu.Lock()
	s.serverCaps = result.Capabilities
	s.mu.Unlock()
	if err := s.peer.Notify("initialized", struct{}{}); err != nil {
		return err
	}
	return nil
}

// Shutdown asks the child to exit cleanly: an LSP shutdown request followed
// by an exit notification, then waits up to ctx's deadline for the process
// to exit before killing it.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case types.SessionDead, types.SessionUnstarted:
		s.mu.Unlock()
		return nil
	case types.SessionShuttingDown:
		s.mu.Unlock()
		<-s.deadC
		return nil
	}
	s.state = types.SessionShuttingDown
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.peer.Call(shutdownCtx, "shutdown", nil, nil); err != nil {
		s.log.Warn().Err(err).Msg("shutdown request failed, proceeding to exit anyway")
	}
	if err := s.peer.Notify("exit", nil); err != nil {
		s.log.Warn().Err(err).Msg("exit notification failed")
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- s.cmd.Wait() }()

	select {
	case <-waitErr:
	case <-ctx.Done():
		_ = s.cmd.Process.Kill()
		<-waitErr
	}

	s.mu.Lock()
	s.state = types.SessionDead
	s.mu.Unlock()
	s.closeDead()
	s.docs.MarkAllClosed()
	return nil
}

func (s *Session) handlePublishDiagnostics(_ string, params json.RawMessage) {
	var p lspconn.PublishDiagnosticsParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.log.Warn().Err(err).Msg("decoding publishDiagnostics params")
		return
	}
	s.diags.Set(p.URI, diagnostics.FromWire(p.Diagnostics))

	if s.cfg.WorkspaceRoot == "" {
		return
	}
	if err := s.diags.WriteSnapshot(s.cfg.WorkspaceRoot, time.Now()); err != nil {
		s.log.Warn().Err(err).Msg("writing diagnostics snapshot")
	}
}

func (s *Session) handleLogMessage(_ string, params json.RawMessage) {
	var m struct {
		Type    int    `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(params, &m); err != nil {
		return
	}
	ev := s.log.Info()
	switch m.Type {
	case 1:
		ev = s.log.Error()
	case 2:
		ev = s.log.Warn()
	}
	ev.Msg(m.Message)
}

// stderrLogWriter routes a child process's stderr into the structured
// logger line-by-line instead of letting it escape to our own stderr
// unstructured.
type stderrLogWriter struct {
	log zerolog.Logger
}

func newStderrLogWriter(log zerolog.Logger) io.Writer {
	return &stderrLogWriter{log: log}
}

func (w *stderrLogWriter) Write(p []byte) (int, error) {
	w.log.Debug().Str("stream", "child-stderr").Msg(string(p))
	return len(p), nil
}
