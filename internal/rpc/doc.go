// Package rpc implements a JSON-RPC 2.0 peer: it assigns request ids,
// correlates responses to pending calls, dispatches server-to-client
// requests and notifications, and converts every failure into one of the
// typed error kinds in pkg/types rather than letting a raw transport error
// escape to a capability caller.
package rpc
