// Package registry implements the workspace registry: a name-to-session map
// with lazy connect, bounded-concurrency shutdown, and the lookup semantics
// the capability facade depends on.
package registry
