package session

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/lsp-bridge-mcp/internal/lspconn"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

// resyncConcurrency bounds how many documents are re-synced to the server
// at once during triggerCompilation, mirroring the teacher's bounded
// fan-out over files during indexing.
const resyncConcurrency = 8

// EnsureOpen reads path from disk and sends didOpen on first reference,
// returning its uri. It is a no-op (but still returns the uri) if the file
// is already open on the server. Every query operation calls this before
// asking the server anything about a file.
func (s *Session) EnsureOpen(path string) (string, error) {
	uri := lspconn.PathToURI(path)

	if entry, ok := s.docs.Get(uri); ok && entry.OpenOnServer {
		return uri, nil
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return "", types.Wrap(types.KindIOError, "reading "+path, err)
	}

	entry := s.docs.Open(uri, lspconn.LanguageIDForPath(path), string(text))

	if err := s.peer.Notify("textDocument/didOpen", lspconn.DidOpenTextDocumentParams{
		TextDocument: lspconn.TextDocumentItem{
			URI:        uri,
			LanguageID: entry.LanguageID,
			Version:    entry.Version,
			Text:       entry.Text,
		},
	}); err != nil {
		return "", err
	}
	s.docs.MarkOpenOnServer(uri)
	return uri, nil
}

// ApplyEdit handles one notify-file signal: re-reads path from disk and, if
// its content actually changed, sends a full-text didChange followed by a
// didSave so servers that only recompile on save still pick it up.
func (s *Session) ApplyEdit(path string) error {
	uri := lspconn.PathToURI(path)

	entry, ok := s.docs.Get(uri)
	if !ok || !entry.OpenOnServer {
		_, err := s.EnsureOpen(path)
		return err
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return types.Wrap(types.KindIOError, "reading "+path, err)
	}
	newText := string(text)

	if newText == entry.Text || s.docs.ContentUnchanged(uri, newText) {
		return nil
	}

	version, err := s.docs.Update(uri, newText)
	if err != nil {
		return err
	}

	if err := s.peer.Notify("textDocument/didChange", lspconn.DidChangeTextDocumentParams{
		TextDocument:   lspconn.VersionedTextDocumentIdentifier{URI: uri, Version: version},
		ContentChanges: []lspconn.TextDocumentContentChangeEvent{{Text: newText}},
	}); err != nil {
		return err
	}
	return s.peer.Notify("textDocument/didSave", lspconn.DidSaveTextDocumentParams{
		TextDocument: lspconn.TextDocumentIdentifier{URI: uri},
		Text:         newText,
	})
}

// resyncOne bumps uri's version (text unchanged) and re-sends
// didChange/didSave, forcing a server to reconsider a file it has already
// compiled without the bridge knowing any server-specific compile command.
func (s *Session) resyncOne(uri string) error {
	entry, ok := s.docs.Get(uri)
	if !ok {
		return nil
	}
	version, err := s.docs.Update(uri, entry.Text)
	if err != nil {
		return err
	}
	if err := s.peer.Notify("textDocument/didChange", lspconn.DidChangeTextDocumentParams{
		TextDocument:   lspconn.VersionedTextDocumentIdentifier{URI: uri, Version: version},
		ContentChanges: []lspconn.TextDocumentContentChangeEvent{{Text: entry.Text}},
	}); err != nil {
		return err
	}
	return s.peer.Notify("textDocument/didSave", lspconn.DidSaveTextDocumentParams{
		TextDocument: lspconn.TextDocumentIdentifier{URI: uri},
		Text:         entry.Text,
	})
}

// TriggerCompilation re-syncs every currently open document (bumping its
// version and re-sending didChange/didSave so the server recompiles without
// the bridge needing a server-specific compile request), then waits out the
// grace period for publishDiagnostics notifications to land before
// returning the current diagnostics summary.
func (s *Session) TriggerCompilation(ctx context.Context) (types.DiagnosticsSummary, error) {
	uris := s.docs.OpenURIs()

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, resyncConcurrency)
	for _, uri := range uris {
		uri := uri
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()
			return s.resyncOne(uri)
		})
	}
	if err := g.Wait(); err != nil {
		return types.DiagnosticsSummary{}, err
	}

	timer := time.NewTimer(s.compileGrace)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-s.deadC:
	}

	return s.diags.Summary(), nil
}
