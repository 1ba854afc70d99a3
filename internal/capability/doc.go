// Package capability implements the upstream capability facade: the
// language-neutral operation set every upstream adapter (MCP today,
// anything else tomorrow) calls into. One Facade per process.
package capability
