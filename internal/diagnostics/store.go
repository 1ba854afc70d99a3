package diagnostics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/lsp-bridge-mcp/internal/lspconn"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

// Store is the per-session diagnostics map. Safe for concurrent use. A
// uri's list is always present-or-absent as a whole: Set replaces it
// atomically, never merges.
type Store struct {
	mu      sync.RWMutex
	byURI   map[string][]types.Diagnostic
}

// NewStore builds an empty diagnostics store.
func NewStore() *Store {
	return &Store{byURI: make(map[string][]types.Diagnostic)}
}

// Set atomically replaces uri's diagnostics list, including with an empty
// list — an empty list means "server confirmed this file is clean," which
// must be distinguishable from "we have never heard about this file."
func (s *Store) Set(uri string, diags []types.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if diags == nil {
		diags = []types.Diagnostic{}
	}
	s.byURI[uri] = diags
}

// Reset discards every known file's diagnostics, used when a session's
// child dies unexpectedly and its diagnostic picture is no longer trusted.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byURI = make(map[string][]types.Diagnostic)
}

// GetForFile returns uri's diagnostics, or an empty slice if uri is
// unknown.
func (s *Store) GetForFile(uri string) []types.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	diags := s.byURI[uri]
	return append(make([]types.Diagnostic, 0, len(diags)), diags...)
}

// GetAll returns every known file's diagnostics, sorted by uri for
// deterministic output.
func (s *Store) GetAll() []types.FileDiagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.byURI))
	for uri := range s.byURI {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	out := make([]types.FileDiagnostics, 0, len(uris))
	for _, uri := range uris {
		diags := s.byURI[uri]
		out = append(out, types.FileDiagnostics{
			URI:         uri,
			Diagnostics: append(make([]types.Diagnostic, 0, len(diags)), diags...),
		})
	}
	return out
}

// Summary totals diagnostics by severity across every known file.
func (s *Store) Summary() types.DiagnosticsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum types.DiagnosticsSummary
	sum.TotalFiles = len(s.byURI)
	for _, diags := range s.byURI {
		for _, d := range diags {
			sum.TotalDiagnostics++
			switch d.Severity {
			case types.SeverityError:
				sum.Errors++
			case types.SeverityWarning:
				sum.Warnings++
			case types.SeverityInfo:
				sum.Info++
			case types.SeverityHint:
				sum.Hints++
			}
		}
	}
	return sum
}

// FromWire converts the server's publishDiagnostics payload (0-indexed) to
// the store's 1-indexed Diagnostic shape.
func FromWire(wire []lspconn.WireDiagnostic) []types.Diagnostic {
	out := make([]types.Diagnostic, 0, len(wire))
	for _, w := range wire {
		d := types.Diagnostic{
			Severity:      types.ParseSeverity(w.Severity),
			Line:          w.Range.Start.Line + 1,
			Character:     w.Range.Start.Character,
			EndLine:       w.Range.End.Line + 1,
			EndCharacter:  w.Range.End.Character,
			Message:       w.Message,
			Source:        w.Source,
		}
		if w.Code != nil {
			d.Code = fmt.Sprint(w.Code)
		}
		out = append(out, d)
	}
	return out
}
