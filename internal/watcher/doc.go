// Package watcher implements the edit watcher: it watches a well-known
// notify file for absolute paths of recently edited files and delivers each
// to the owning workspace's session.
package watcher
