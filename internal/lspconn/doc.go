// Package lspconn defines the LSP wire types this bridge actually speaks —
// the subset of initialize, synchronization, hover, and definition messages
// the session needs, not a full LSP type library — plus URI<->path
// conversion and the extension-to-languageId table used when opening a
// document for the first time.
package lspconn
