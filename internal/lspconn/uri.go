package lspconn

import (
	"net/url"
	"path/filepath"
	"strings"
)

// languageIDByExt is the fixed extension table from the design notes. An
// unrecognized extension maps to "plaintext" rather than failing the open.
var languageIDByExt = map[string]string{
	".scala": "scala",
	".sbt":   "scala",
	".rs":    "rust",
	".ts":    "typescript",
	".tsx":   "typescriptreact",
	".js":    "javascript",
	".jsx":   "javascriptreact",
	".py":    "python",
	".go":    "go",
}

// LanguageIDForPath returns the LSP languageId for path's extension,
// defaulting to "plaintext" for anything not in the fixed table.
func LanguageIDForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if id, ok := languageIDByExt[ext]; ok {
		return id
	}
	return "plaintext"
}

// PathToURI converts an absolute filesystem path to a file:// URI. Paths
// are expected to already be absolute and cleaned; callers resolve
// relative paths before calling this.
func PathToURI(path string) string {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	u := url.URL{Scheme: "file", Path: cleaned}
	return u.String()
}

// URIToPath converts a file:// URI back to an absolute filesystem path. It
// returns ("", false) if uri is not a file:// URI.
func URIToPath(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}
