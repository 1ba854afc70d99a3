// Package types holds the plain data records shared across the bridge:
// positions and ranges, diagnostics, server configuration, session status,
// and the typed error used to carry the error kinds the design calls out
// (configError, spawnError, protocolError, rpcError, timeout,
// transportClosed, unknownWorkspace, unavailable, ioError, notFound).
package types
