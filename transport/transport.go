// Package transport carries league protocol calls between actors. Actors are
// reachable only through a Handler; callers never share memory with callees.
// Two carriers are provided: an in-process Bus for tests and single-process
// leagues, and an HTTP JSON-RPC client/server pair with exponential backoff
// retries for transient delivery failures.
package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/leaguemesh/protocol"
)

// TransportError reports a delivery failure. Retryable with backoff up to a
// bounded attempt count, then surfaced as a fatal failure for that call.
type TransportError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying delivery error.
func (e *TransportError) Unwrap() error { return e.Err }

// Handler processes one inbound protocol request and produces the response.
// Implementations validate the envelope before touching business logic.
type Handler interface {
	Handle(ctx context.Context, req protocol.Request) protocol.Response
}

// Caller delivers a protocol request to the actor behind an endpoint and
// returns the raw result. RPC-level failures come back as *protocol.RPCError,
// delivery failures as *TransportError.
type Caller interface {
	Call(ctx context.Context, endpoint, method string, params any) (json.RawMessage, error)
}

// Result marshals a payload into a successful JSON-RPC response.
func Result(id int, payload any) protocol.Response {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Fault(id, protocol.RPCCodeInternal, fmt.Errorf("marshal result: %w", err), nil)
	}
	return protocol.Response{JSONRPC: "2.0", Result: raw, ID: id}
}

// Fault builds a JSON-RPC error response, attaching the stable league error
// code under data.error_code when the error carries one.
func Fault(id, code int, err error, data map[string]any) protocol.Response {
	if data == nil {
		data = map[string]any{}
	}
	switch e := err.(type) {
	case *protocol.ProtocolError:
		data["error_code"] = string(e.Code)
	case *protocol.AuthError:
		data["error_code"] = string(e.Code)
	}
	return protocol.Response{
		JSONRPC: "2.0",
		Error:   &protocol.RPCError{Code: code, Message: err.Error(), Data: data},
		ID:      id,
	}
}

// DecodeParams unmarshals request params into a typed payload, converting
// failures into protocol errors.
func DecodeParams(req protocol.Request, v any) error {
	if err := json.Unmarshal(req.Params, v); err != nil {
		return protocol.NewProtocolError(protocol.CodeMissingField, "params", err.Error())
	}
	return nil
}

// DecodeResult unmarshals a raw call result into a typed payload.
func DecodeResult(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return protocol.NewProtocolError(protocol.CodeMissingField, "result", err.Error())
	}
	return nil
}
