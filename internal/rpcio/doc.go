// Package rpcio implements the LSP-framed stdio transport: each JSON-RPC
// message is wrapped in a Content-Length header block terminated by a
// blank line, exactly as LSP 3.x specifies. It knows nothing about
// JSON-RPC semantics (ids, methods, dispatch) — that lives one layer up in
// internal/rpc. rpcio only reads and writes framed byte messages.
package rpcio
