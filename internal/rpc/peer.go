package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/lsp-bridge-mcp/internal/rpcio"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

// NotificationHandler processes a server-to-client notification. It runs on
// the dispatch goroutine, in the order notifications arrive; it must not
// block on anything slower than an in-memory update.
type NotificationHandler func(method string, params json.RawMessage)

// RequestHandler processes a server-to-client request and returns either a
// result to marshal back or an RPCError. It also runs on the dispatch
// goroutine.
type RequestHandler func(ctx context.Context, method string, params json.RawMessage) (result any, rpcErr *RPCError)

type callResult struct {
	result json.RawMessage
	rpcErr *RPCError
	err    error // set when the peer died before a real response arrived
}

// Peer is one side of a JSON-RPC 2.0 connection framed by rpcio. A Peer
// assigns its own monotonically increasing request ids, correlates
// responses against a pending-call table, and dispatches server-to-client
// requests and notifications to registered handlers. Exactly one goroutine
// must call Run; Call, Notify, OnNotification, and OnRequest are safe to
// call from any goroutine.
type Peer struct {
	reader *rpcio.Reader
	writer *rpcio.Writer
	log    zerolog.Logger

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan callResult
	closed  bool
	closeErr error

	handlersMu    sync.RWMutex
	notifHandlers map[string]NotificationHandler
	reqHandlers   map[string]RequestHandler
}

// New builds a Peer that reads framed messages from reader and writes
// framed messages to writer.
func New(reader *rpcio.Reader, writer *rpcio.Writer, log zerolog.Logger) *Peer {
	return &Peer{
		reader:        reader,
		writer:        writer,
		log:           log,
		pending:       make(map[int64]chan callResult),
		notifHandlers: make(map[string]NotificationHandler),
		reqHandlers:   make(map[string]RequestHandler),
	}
}

// OnNotification registers the handler invoked for server-to-client
// notifications of the given method. Registering twice replaces the prior
// handler.
func (p *Peer) OnNotification(method string, h NotificationHandler) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.notifHandlers[method] = h
}

// OnRequest registers the handler invoked for server-to-client requests of
// the given method. Registering twice replaces the prior handler.
func (p *Peer) OnRequest(method string, h RequestHandler) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.reqHandlers[method] = h
}

// Call sends a request and blocks until a matching response arrives, ctx is
// done, or the peer dies. On success, result is decoded into out (if out is
// non-nil and the server returned a result).
//
// A timed-out call does not remove its slot from the pending table — per
// the arbitration scheme in the design notes, only the dispatch loop ever
// removes a pending entry, when the real response (however late) finally
// arrives. The caller here simply stops waiting; the eventual late result is
// delivered into a buffered channel nobody reads again and is dropped.
func (p *Peer) Call(ctx context.Context, method string, params any, out any) error {
	id := p.nextID.Add(1)

	paramsRaw, err := marshalParams(params)
	if err != nil {
		return types.Wrap(types.KindProtocolError, "marshaling request params", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  paramsRaw,
	}

	ch := make(chan callResult, 1)

	p.mu.Lock()
	if p.closed {
		closeErr := p.closeErr
		p.mu.Unlock()
		return types.Wrap(types.KindTransportClosed, "peer already closed", closeErr)
	}
	p.pending[id] = ch
	p.mu.Unlock()

	body, err := json.Marshal(req)
	if err != nil {
		return types.Wrap(types.KindProtocolError, "marshaling request", err)
	}
	if err := p.writer.WriteMessage(body); err != nil {
		return types.Wrap(types.KindIOError, fmt.Sprintf("writing %s request", method), err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return types.Wrap(types.KindTransportClosed, fmt.Sprintf("%s aborted", method), res.err)
		}
		if res.rpcErr != nil {
			return types.Wrap(types.KindRPCError, fmt.Sprintf("%s: %s", method, res.rpcErr.Message), res.rpcErr)
		}
		if out != nil && len(res.result) > 0 {
			if err := json.Unmarshal(res.result, out); err != nil {
				return types.Wrap(types.KindProtocolError, fmt.Sprintf("decoding %s result", method), err)
			}
		}
		return nil
	case <-ctx.Done():
		return types.Wrap(types.KindTimeout, fmt.Sprintf("%s timed out", method), ctx.Err())
	}
}

// Notify sends a notification; there is no response to wait for.
func (p *Peer) Notify(method string, params any) error {
	paramsRaw, err := marshalParams(params)
	if err != nil {
		return types.Wrap(types.KindProtocolError, "marshaling notification params", err)
	}
	req := Request{JSONRPC: "2.0", Method: method, Params: paramsRaw}
	body, err := json.Marshal(req)
	if err != nil {
		return types.Wrap(types.KindProtocolError, "marshaling notification", err)
	}
	if err := p.writer.WriteMessage(body); err != nil {
		return types.Wrap(types.KindIOError, fmt.Sprintf("writing %s notification", method), err)
	}
	return nil
}

// Run reads and dispatches frames until the transport fails. It returns a
// *types.Error describing why the loop stopped: KindTransportClosed for a
// clean EOF, KindProtocolError for a framing or decode violation, and
// KindIOError for any other read failure. Every
// still-pending call is failed with the same error before Run returns.
func (p *Peer) Run(ctx context.Context) error {
	for {
		body, err := p.reader.ReadMessage()
		if err != nil {
			closeErr := classifyReadErr(err)
			p.closeAll(closeErr)
			return closeErr
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			closeErr := types.Wrap(types.KindProtocolError, "decoding jsonrpc message", err)
			p.closeAll(closeErr)
			return closeErr
		}

		switch {
		case env.isResponse():
			p.completeCall(env)
		case env.isServerRequest():
			p.handleServerRequest(ctx, env)
		case env.isNotification():
			p.handleNotification(env)
		default:
			p.log.Warn().Str("raw", string(body)).Msg("unclassifiable jsonrpc message, dropping")
		}
	}
}

func (p *Peer) completeCall(env envelope) {
	id, err := strconv.ParseInt(string(env.ID), 10, 64)
	if err != nil {
		p.log.Warn().Str("id", string(env.ID)).Msg("response with non-integer id, dropping")
		return
	}

	p.mu.Lock()
	ch, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()

	if !ok {
		p.log.Debug().Int64("id", id).Msg("response for unknown or abandoned call, dropping")
		return
	}
	ch <- callResult{result: env.Result, rpcErr: env.Error}
}

func (p *Peer) handleServerRequest(ctx context.Context, env envelope) {
	p.handlersMu.RLock()
	h, ok := p.reqHandlers[env.Method]
	p.handlersMu.RUnlock()

	resp := Response{JSONRPC: "2.0", ID: env.ID}
	if !ok {
		p.log.Debug().Str("method", env.Method).Msg("no handler registered for server request, replying null")
		resp.Result = json.RawMessage("null")
	} else {
		result, rpcErr := h(ctx, env.Method, env.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
		} else if result != nil {
			raw, err := json.Marshal(result)
			if err != nil {
				resp.Error = &RPCError{Code: ErrCodeInternalError, Message: err.Error()}
			} else {
				resp.Result = raw
			}
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		p.log.Error().Err(err).Str("method", env.Method).Msg("marshaling server-request response")
		return
	}
	if err := p.writer.WriteMessage(body); err != nil {
		p.log.Error().Err(err).Str("method", env.Method).Msg("writing server-request response")
	}
}

func (p *Peer) handleNotification(env envelope) {
	p.handlersMu.RLock()
	h, ok := p.notifHandlers[env.Method]
	p.handlersMu.RUnlock()

	if !ok {
		p.log.Debug().Str("method", env.Method).Msg("no handler registered, dropping notification")
		return
	}
	h(env.Method, env.Params)
}

func (p *Peer) closeAll(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.closeErr = err
	pending := p.pending
	p.pending = make(map[int64]chan callResult)
	p.mu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: err}
	}
}

func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return types.Wrap(types.KindTransportClosed, "transport closed", err)
	}
	var perr *rpcio.ProtocolError
	if errors.As(err, &perr) {
		return types.Wrap(types.KindProtocolError, "framing violation", err)
	}
	return types.Wrap(types.KindIOError, "reading transport", err)
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}
