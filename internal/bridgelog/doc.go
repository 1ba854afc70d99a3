// Package bridgelog builds the process-wide structured logger: one
// zerolog.Logger writing leveled, component-tagged lines to a configured
// file (or stderr), never stdout — stdout is reserved for the MCP stdio
// transport.
package bridgelog
