package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

type fakeApplier struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeApplier) ApplyEdit(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return nil
}

func (f *fakeApplier) appliedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.paths))
	copy(out, f.paths)
	return out
}

type fakeResolver struct {
	root    string
	applier *fakeApplier
}

func (r *fakeResolver) ResolveSession(_ context.Context, path string) (EditApplier, error) {
	if !strings.HasPrefix(path, r.root) {
		return nil, types.NewError(types.KindUnknownWorkspace, "no workspace owns "+path)
	}
	return r.applier, nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition never became true within "+timeout.String())
}

func TestWatcherDispatchesSettledLastLineToOwningSession(t *testing.T) {
	dir := t.TempDir()
	notifyFile := filepath.Join(dir, "notify.txt")
	require.NoError(t, os.WriteFile(notifyFile, []byte{}, 0o644))

	ws := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(ws, 0o755))
	applier := &fakeApplier{}
	resolver := &fakeResolver{root: ws, applier: applier}

	w := New(resolver, zerolog.Nop(), WithNotifyFile(notifyFile), WithDebounceWindow(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	editedPath := filepath.Join(ws, "src", "App.scala")
	require.NoError(t, os.WriteFile(notifyFile, []byte(editedPath+"\n"), 0o644))

	waitFor(t, 2*time.Second, func() bool { return len(applier.appliedPaths()) == 1 })
	assert.Equal(t, []string{editedPath}, applier.appliedPaths())

	cancel()
	<-done
}

func TestWatcherTakesLastNonEmptyLineOnly(t *testing.T) {
	dir := t.TempDir()
	notifyFile := filepath.Join(dir, "notify.txt")
	require.NoError(t, os.WriteFile(notifyFile, []byte{}, 0o644))

	applier := &fakeApplier{}
	resolver := &fakeResolver{root: dir, applier: applier}
	w := New(resolver, zerolog.Nop(), WithNotifyFile(notifyFile), WithDebounceWindow(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	first := filepath.Join(dir, "a.scala")
	second := filepath.Join(dir, "b.scala")
	content := first + "\n\n" + second + "\n"
	require.NoError(t, os.WriteFile(notifyFile, []byte(content), 0o644))

	waitFor(t, 2*time.Second, func() bool { return len(applier.appliedPaths()) == 1 })
	assert.Equal(t, []string{second}, applier.appliedPaths())

	cancel()
	<-done
}

func TestWatcherIgnoresPathNoWorkspaceOwns(t *testing.T) {
	dir := t.TempDir()
	notifyFile := filepath.Join(dir, "notify.txt")
	require.NoError(t, os.WriteFile(notifyFile, []byte{}, 0o644))

	applier := &fakeApplier{}
	resolver := &fakeResolver{root: filepath.Join(dir, "owned"), applier: applier}
	w := New(resolver, zerolog.Nop(), WithNotifyFile(notifyFile), WithDebounceWindow(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	unowned := filepath.Join(dir, "elsewhere", "App.scala")
	require.NoError(t, os.WriteFile(notifyFile, []byte(unowned+"\n"), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, applier.appliedPaths())

	cancel()
	<-done
}

func TestWatcherStopsPromptlyOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	notifyFile := filepath.Join(dir, "notify.txt")
	require.NoError(t, os.WriteFile(notifyFile, []byte{}, 0o644))

	w := New(&fakeResolver{root: dir, applier: &fakeApplier{}}, zerolog.Nop(), WithNotifyFile(notifyFile))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop promptly after cancellation")
	}
}
