package document

import (
	"crypto/sha256"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

// Entry is one file's view as tracked by a session. Version starts at 1 on
// first open and is non-decreasing thereafter.
type Entry struct {
	URI          string
	LanguageID   string
	Version      int
	Text         string
	OpenOnServer bool
}

// Store is the per-session document map. Safe for concurrent use. It never
// touches disk; callers supply text read from the filesystem.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	// hashes memoizes the last-sent content hash per uri so applyEdit can
	// skip a redundant didChange/didSave round trip when disk content is
	// unchanged since the last sync. Bounded so a long-lived session on a
	// large workspace doesn't grow this without limit; an evicted uri is
	// simply treated as "changed" on its next check, which only costs one
	// extra sync, never correctness.
	hashes *lru.Cache[string, [32]byte]
}

const hashCacheSize = 2048

// NewStore builds an empty document store.
func NewStore() *Store {
	cache, err := lru.New[string, [32]byte](hashCacheSize)
	if err != nil {
		// Only possible if hashCacheSize <= 0, which it never is.
		panic(err)
	}
	return &Store{
		entries: make(map[string]*Entry),
		hashes:  cache,
	}
}

// Open creates the entry for uri with version 1 if absent, or returns the
// existing entry unchanged. Idempotent.
func (s *Store) Open(uri, languageID, text string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[uri]; ok {
		return e
	}
	e := &Entry{URI: uri, LanguageID: languageID, Version: 1, Text: text}
	s.entries[uri] = e
	return e
}

// MarkOpenOnServer flips OpenOnServer to true after a successful didOpen.
func (s *Store) MarkOpenOnServer(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[uri]; ok {
		e.OpenOnServer = true
	}
}

// Update increments uri's version and replaces its text, returning the new
// version. Returns *types.Error{Kind: KindNotFound} if uri has never been
// opened.
func (s *Store) Update(uri, newText string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[uri]
	if !ok {
		return 0, types.NewError(types.KindNotFound, "document not open: "+uri)
	}
	e.Version++
	e.Text = newText
	return e.Version, nil
}

// Get returns uri's entry and whether it exists.
func (s *Store) Get(uri string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[uri]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// OpenURIs returns the uris currently marked OpenOnServer, sorted, for
// triggerCompilation's "re-sync every open document" step.
func (s *Store) OpenURIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.entries))
	for uri, e := range s.entries {
		if e.OpenOnServer {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	return uris
}

// MarkAllClosed flips OpenOnServer to false for every entry, used when a
// session's child dies unexpectedly. Text and version are preserved; only
// the server-side open state is invalidated.
func (s *Store) MarkAllClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.OpenOnServer = false
	}
	s.hashes.Purge()
}

// ContentUnchanged reports whether text hashes identically to the last text
// checked for uri, caching the new hash either way. A uri never checked
// before is reported changed.
func (s *Store) ContentUnchanged(uri, text string) bool {
	sum := sha256.Sum256([]byte(text))

	prev, ok := s.hashes.Get(uri)
	s.hashes.Add(uri, sum)
	return ok && prev == sum
}
