// Package mcpadapter is the thin MCP surface over the capability facade:
// one tool per facade operation, a diagnostics resource template, and a
// standing compile_check prompt.
package mcpadapter
