package session

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/dshills/lsp-bridge-mcp/internal/lspconn"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

// Hover opens path if needed and returns the server's hover text for the
// 1-indexed line and 0-indexed character. *notFound* if the server has
// nothing to say.
func (s *Session) Hover(ctx context.Context, path string, line1, char0 int) (string, error) {
	uri, err := s.EnsureOpen(path)
	if err != nil {
		return "", err
	}

	params := lspconn.TextDocumentPositionParams{
		TextDocument: lspconn.TextDocumentIdentifier{URI: uri},
		Position:     lspconn.Position{Line: line1 - 1, Character: char0},
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	var result lspconn.HoverResult
	if err := s.peer.Call(callCtx, "textDocument/hover", params, &result); err != nil {
		return "", err
	}
	if len(result.Contents) == 0 || bytes.Equal(bytes.TrimSpace(result.Contents), []byte("null")) {
		return "", types.NewError(types.KindNotFound, "no hover information at "+path)
	}

	text, err := normalizeHoverContents(result.Contents)
	if err != nil {
		return "", types.Wrap(types.KindProtocolError, "decoding hover contents", err)
	}
	if text == "" {
		return "", types.NewError(types.KindNotFound, "no hover information at "+path)
	}
	return text, nil
}

// normalizeHoverContents accepts any of the three shapes LSP's hover
// contents field may take: a bare string, a single MarkupContent object, or
// an array mixing either.
func normalizeHoverContents(raw json.RawMessage) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var asMarkup lspconn.MarkupContent
	if err := json.Unmarshal(raw, &asMarkup); err == nil && asMarkup.Value != "" {
		return asMarkup.Value, nil
	}

	var asArray []json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err == nil {
		parts := make([]string, 0, len(asArray))
		for _, item := range asArray {
			s, err := normalizeHoverContents(item)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n\n"), nil
	}

	return "", nil
}

// Definition opens path if needed and returns every definition location the
// server reports, normalized to 1-indexed lines and filesystem paths.
// *notFound* if the server returns nothing.
func (s *Session) Definition(ctx context.Context, path string, line1, char0 int) ([]types.DefinitionHit, error) {
	uri, err := s.EnsureOpen(path)
	if err != nil {
		return nil, err
	}

	params := lspconn.TextDocumentPositionParams{
		TextDocument: lspconn.TextDocumentIdentifier{URI: uri},
		Position:     lspconn.Position{Line: line1 - 1, Character: char0},
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	var raw json.RawMessage
	if err := s.peer.Call(callCtx, "textDocument/definition", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, types.NewError(types.KindNotFound, "no definition at "+path)
	}

	hits, err := normalizeDefinitionResult(raw)
	if err != nil {
		return nil, types.Wrap(types.KindProtocolError, "decoding definition result", err)
	}
	if len(hits) == 0 {
		return nil, types.NewError(types.KindNotFound, "no definition at "+path)
	}
	return hits, nil
}

func normalizeDefinitionResult(raw json.RawMessage) ([]types.DefinitionHit, error) {
	var items []json.RawMessage
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
	} else {
		items = []json.RawMessage{raw}
	}

	hits := make([]types.DefinitionHit, 0, len(items))
	for _, item := range items {
		var loc lspconn.Location
		if err := json.Unmarshal(item, &loc); err == nil && loc.URI != "" {
			hits = append(hits, hitFromURI(loc.URI, loc.Range.Start))
			continue
		}

		var link lspconn.LocationLink
		if err := json.Unmarshal(item, &link); err == nil && link.TargetURI != "" {
			hits = append(hits, hitFromURI(link.TargetURI, link.TargetSelectionRange.Start))
		}
	}
	return hits, nil
}

func hitFromURI(uri string, pos lspconn.Position) types.DefinitionHit {
	path, ok := lspconn.URIToPath(uri)
	if !ok {
		path = uri
	}
	return types.DefinitionHit{Path: path, Line1: pos.Line + 1, Character: pos.Character}
}
