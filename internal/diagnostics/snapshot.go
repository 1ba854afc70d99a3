package diagnostics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/lsp-bridge-mcp/internal/lspconn"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

// snapshotEntry is one diagnostic line in the persisted file's "by_file"
// map. It mirrors types.Diagnostic without the end position; the file the
// entry belongs to is the map key.
type snapshotEntry struct {
	Severity     types.Severity `json:"severity"`
	Line         int            `json:"line"`
	Character    int            `json:"character"`
	Message      string         `json:"message"`
	Source       string         `json:"source,omitempty"`
	Code         string         `json:"code,omitempty"`
}

type snapshotSummary struct {
	TotalFiles       int `json:"total_files"`
	TotalDiagnostics int `json:"total_diagnostics"`
	Errors           int `json:"errors"`
	Warnings         int `json:"warnings"`
	Info             int `json:"info"`
}

type snapshotFile struct {
	Summary      snapshotSummary            `json:"summary"`
	ByFile       map[string][]snapshotEntry `json:"by_file"`
	ErrorCount   int                        `json:"error_count"`
	WarningCount int                        `json:"warning_count"`
	UpdatedAt    string                     `json:"updated_at"`
}

// WriteSnapshot renders the store's current contents to
// <workspaceRoot>/.lsp-bridge/diagnostics.json, writing to a temp file in
// the same directory and renaming over the target so a concurrent reader
// never observes a partial file. now lets tests supply a fixed clock
// instead of relying on time.Now directly.
func (s *Store) WriteSnapshot(workspaceRoot string, now time.Time) error {
	all := s.GetAll()

	snap := snapshotFile{
		ByFile:    make(map[string][]snapshotEntry, len(all)),
		UpdatedAt: now.UTC().Format(time.RFC3339),
	}
	snap.Summary.TotalFiles = len(all)

	for _, fd := range all {
		path, ok := lspconn.URIToPath(fd.URI)
		if !ok {
			path = fd.URI
		}
		entries := make([]snapshotEntry, 0, len(fd.Diagnostics))
		for _, d := range fd.Diagnostics {
			entries = append(entries, snapshotEntry{
				Severity:  d.Severity,
				Line:      d.Line,
				Character: d.Character,
				Message:   d.Message,
				Source:    d.Source,
				Code:      d.Code,
			})
			snap.Summary.TotalDiagnostics++
			switch d.Severity {
			case types.SeverityError:
				snap.Summary.Errors++
				snap.ErrorCount++
			case types.SeverityWarning:
				snap.Summary.Warnings++
				snap.WarningCount++
			case types.SeverityInfo:
				snap.Summary.Info++
			}
		}
		snap.ByFile[path] = entries
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return types.Wrap(types.KindIOError, "marshaling diagnostics snapshot", err)
	}

	dir := filepath.Join(workspaceRoot, ".lsp-bridge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.Wrap(types.KindIOError, "creating .lsp-bridge directory", err)
	}

	target := filepath.Join(dir, "diagnostics.json")
	tmp, err := os.CreateTemp(dir, "diagnostics-*.json.tmp")
	if err != nil {
		return types.Wrap(types.KindIOError, "creating snapshot temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return types.Wrap(types.KindIOError, "writing snapshot temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return types.Wrap(types.KindIOError, "closing snapshot temp file", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return types.Wrap(types.KindIOError, fmt.Sprintf("renaming snapshot into place at %s", target), err)
	}
	return nil
}
