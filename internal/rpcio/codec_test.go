package rpcio

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterThenReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteMessage([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`)))
	require.NoError(t, w.WriteMessage([]byte(`{"jsonrpc":"2.0","method":"initialized"}`)))

	r := NewReader(&buf)

	first, err := r.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, string(first))

	second, err := r.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"initialized"}`, string(second))

	_, err = r.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderHandlesMultiByteUTF8Body(t *testing.T) {
	body := []byte(`{"message":"type mismatch: 日本語"}`)
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteMessage(body))

	got, err := NewReader(&buf).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestReaderIgnoresExtraHeaders(t *testing.T) {
	raw := "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n" +
		"Content-Length: 13\r\n\r\n" +
		`{"ok":true}12`
	r := NewReader(strings.NewReader(raw))

	got, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}12`, string(got))
}

func TestReaderMalformedHeaderIsProtocolError(t *testing.T) {
	r := NewReader(strings.NewReader("not-a-header-line\r\n\r\n"))
	_, err := r.ReadMessage()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestReaderMissingContentLengthIsProtocolError(t *testing.T) {
	r := NewReader(strings.NewReader("Content-Type: foo\r\n\r\n{}"))
	_, err := r.ReadMessage()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestReaderEOFMidBodyIsProtocolError(t *testing.T) {
	r := NewReader(strings.NewReader("Content-Length: 100\r\n\r\n{\"short\":true}"))
	_, err := r.ReadMessage()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestReaderCleanEOFAtBoundary(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}
