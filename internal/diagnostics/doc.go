// Package diagnostics implements the diagnostics store: a per-session map
// from file URI to its latest diagnostics list, updated exclusively by the
// textDocument/publishDiagnostics notification handler, plus an atomic
// snapshot-file writer for persisting the current diagnostics to disk.
package diagnostics
