package lspconn

import "encoding/json"

// Position is 0-indexed on both axes, per the LSP wire format. Callers at
// the capability boundary convert to/from 1-indexed lines; everything in
// this package stays 0-indexed to match what actually goes over the wire.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location identifies a Range within a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// LocationLink is the alternate shape some servers return from
// textDocument/definition instead of a plain Location.
type LocationLink struct {
	TargetURI            string `json:"targetUri"`
	TargetRange           Range  `json:"targetRange"`
	TargetSelectionRange Range  `json:"targetSelectionRange"`
}

// InitializeParams is the subset of the LSP initialize request this bridge
// sends. Omitted fields (trace, initializationOptions, clientInfo) are left
// to the zero value; servers treat absence as "use defaults."
type InitializeParams struct {
	ProcessID        *int               `json:"processId"`
	RootURI          string             `json:"rootUri"`
	WorkspaceFolders []WorkspaceFolder  `json:"workspaceFolders"`
	Capabilities     ClientCapabilities `json:"capabilities"`
}

// WorkspaceFolder pairs a folder's URI with a display name.
type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// ClientCapabilities advertises the minimum the design notes require: full
// document sync, publishDiagnostics, hover, and definition.
type ClientCapabilities struct {
	TextDocument TextDocumentClientCapabilities `json:"textDocument"`
	Workspace    WorkspaceClientCapabilities    `json:"workspace"`
}

// TextDocumentClientCapabilities is the textDocument sub-block.
type TextDocumentClientCapabilities struct {
	Synchronization     SyncCapability     `json:"synchronization"`
	PublishDiagnostics  struct{}           `json:"publishDiagnostics"`
	Hover               HoverCapability    `json:"hover"`
	Definition          struct{}           `json:"definition"`
}

// SyncCapability declares full-document sync (no incremental deltas).
type SyncCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
	WillSave            bool `json:"willSave"`
	DidSave             bool `json:"didSave"`
}

// HoverCapability declares the accepted hover content formats.
type HoverCapability struct {
	ContentFormat []string `json:"contentFormat"`
}

// WorkspaceClientCapabilities is the workspace sub-block. configuration and
// workspaceFolders are advertised true so a server's
// workspace/configuration or client/registerCapability requests get a
// sensible default response instead of surprising the server.
type WorkspaceClientCapabilities struct {
	Configuration    bool `json:"configuration"`
	WorkspaceFolders bool `json:"workspaceFolders"`
}

// InitializeResult is decoded loosely: the bridge stores the server's
// capabilities but never branches logic on individual capability fields
// (every server it talks to is assumed to support sync/hover/definition).
type InitializeResult struct {
	Capabilities json.RawMessage `json:"capabilities"`
}

// TextDocumentItem is the payload of a didOpen notification.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// DidOpenTextDocumentParams wraps a TextDocumentItem for didOpen.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// VersionedTextDocumentIdentifier names a document plus the version being
// described, used by didChange and didSave.
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

// TextDocumentContentChangeEvent describes one full-document replacement;
// the bridge only ever does full sync, never incremental ranges.
type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

// DidChangeTextDocumentParams is the payload of a didChange notification.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier   `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

// TextDocumentIdentifier names a document without a version.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// DidSaveTextDocumentParams is the payload of a didSave notification. Text
// is included for servers that only read the saved body from the
// notification rather than re-reading disk.
type DidSaveTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Text         string                 `json:"text"`
}

// PublishDiagnosticsParams is the payload of a publishDiagnostics
// notification from the server.
type PublishDiagnosticsParams struct {
	URI         string               `json:"uri"`
	Version     *int                 `json:"version"`
	Diagnostics []WireDiagnostic     `json:"diagnostics"`
}

// WireDiagnostic is one diagnostic entry exactly as the server sends it,
// 0-indexed. internal/diagnostics converts this to the 1-indexed store
// shape.
type WireDiagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Code     any    `json:"code,omitempty"`
	Source   string `json:"source,omitempty"`
	Message  string `json:"message"`
}

// TextDocumentPositionParams is the common params shape for hover and
// definition requests.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// MarkupContent is a hover content block.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// HoverResult is the raw textDocument/hover response. Contents can be a
// string, a MarkupContent, or an array of either per the LSP spec, so it is
// decoded loosely and normalized by the session.
type HoverResult struct {
	Contents json.RawMessage `json:"contents"`
	Range    *Range          `json:"range,omitempty"`
}

// DefinitionResult decodes a textDocument/definition response, which may be
// null, a single Location, an array of Location, or an array of
// LocationLink depending on the server.
type DefinitionResult struct {
	raw json.RawMessage
}

// UnmarshalJSON stores the raw bytes for later shape-sniffing by the
// session, since the three valid shapes cannot be discriminated by a single
// struct tag set.
func (d *DefinitionResult) UnmarshalJSON(data []byte) error {
	d.raw = append([]byte(nil), data...)
	return nil
}

// Raw returns the undecoded response bytes.
func (d DefinitionResult) Raw() json.RawMessage {
	return d.raw
}
