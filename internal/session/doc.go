// Package session implements the LSP session, the protocol heart of the
// bridge: owns one child language-server process, drives it through the
// initialize handshake, keeps its document and diagnostics stores current,
// and exposes the sync and query operations the capability facade calls.
package session
