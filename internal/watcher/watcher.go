package watcher

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// defaultNotifyFile matches the original prototype's default location.
const defaultNotifyFile = "/tmp/lsp-bridge-notify.txt"

// defaultDebounceWindow coalesces the write-storm a batch save produces into
// one delivery of the settled last line.
const defaultDebounceWindow = 250 * time.Millisecond

// EditApplier is the subset of *session.Session the watcher needs. Declared
// here (not imported from internal/session) so the watcher never has to know
// about sessions, registries, or workspace configuration — only about
// "something that can apply an edit at a path".
type EditApplier interface {
	ApplyEdit(path string) error
}

// Resolver maps an absolute file path to the session that owns it, i.e. the
// workspace whose root is the longest matching prefix of path.
type Resolver interface {
	ResolveSession(ctx context.Context, path string) (EditApplier, error)
}

// Watcher watches the notify file via fsnotify and dispatches each settled
// path to Resolver.ResolveSession's returned session.
type Watcher struct {
	notifyFile     string
	debounceWindow time.Duration
	resolver       Resolver
	log            zerolog.Logger

	mu       sync.Mutex
	lastPath string
}

// Option configures a Watcher at construction time.
type Option func(*Watcher)

// WithNotifyFile overrides the default /tmp/lsp-bridge-notify.txt path.
func WithNotifyFile(path string) Option {
	return func(w *Watcher) { w.notifyFile = path }
}

// WithDebounceWindow overrides the default 250ms debounce window.
func WithDebounceWindow(d time.Duration) Option {
	return func(w *Watcher) { w.debounceWindow = d }
}

// New builds a Watcher. resolver must not be nil.
func New(resolver Resolver, log zerolog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		notifyFile:     defaultNotifyFile,
		debounceWindow: defaultDebounceWindow,
		resolver:       resolver,
		log:            log.With().Str("component", "watcher").Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the notify file until ctx is cancelled, which ends the task
// promptly (cooperative cancellation). A debounced read already scheduled
// when ctx is cancelled can still run once after Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dir := filepath.Dir(w.notifyFile)
	if err := fsw.Add(dir); err != nil {
		return err
	}

	debounced := debounce.New(w.debounceWindow)

	// A file that already has content when the watcher starts should be
	// honored too, not just subsequent writes.
	w.handleSettle(ctx, debounced)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.notifyFile) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleSettle(ctx, debounced)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("fsnotify reported an error")
		}
	}
}

// handleSettle schedules the debounced read-and-dispatch; debounce.New
// coalesces bursts so only the last scheduled call within the window runs,
// which is what we want: always act on whatever the file settles to.
func (w *Watcher) handleSettle(ctx context.Context, debounced func(func())) {
	debounced(func() { w.readAndDispatch(ctx) })
}

// readAndDispatch reads the notify file's last non-empty line and, if it
// differs from the last path dispatched, delivers it to its owning session.
func (w *Watcher) readAndDispatch(ctx context.Context) {
	path, err := lastNonEmptyLine(w.notifyFile)
	if err != nil {
		if !os.IsNotExist(err) {
			w.log.Warn().Err(err).Str("path", w.notifyFile).Msg("reading notify file")
		}
		return
	}
	if path == "" {
		return
	}

	w.mu.Lock()
	if path == w.lastPath {
		w.mu.Unlock()
		return
	}
	w.lastPath = path
	w.mu.Unlock()

	sess, err := w.resolver.ResolveSession(ctx, path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("no workspace owns edited path, ignoring")
		return
	}
	if err := sess.ApplyEdit(path); err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("applying edit")
	}
}

func lastNonEmptyLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return last, nil
}
