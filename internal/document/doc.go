// Package document implements the open-document store: a per-session,
// in-memory map from file URI to the session's view of that file (language,
// version, text, whether it has been opened on the LSP server). The store
// never touches the filesystem; reading file contents from disk is the
// session's job.
package document
