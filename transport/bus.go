package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/leaguemesh/protocol"
)

// Bus is an in-process Caller routing requests to registered handlers by
// endpoint name. Handlers still see only serialized protocol requests, so
// actors keep their isolation even inside one process. Safe for concurrent
// use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	seq      int
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string]Handler)}
}

// Register binds an endpoint name to a handler, replacing any previous
// binding.
func (b *Bus) Register(endpoint string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[endpoint] = h
}

func (b *Bus) nextID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	return b.seq
}

// Call dispatches a request to the handler behind endpoint. An unknown
// endpoint is a delivery failure.
func (b *Bus) Call(ctx context.Context, endpoint, method string, params any) (json.RawMessage, error) {
	b.mu.RLock()
	h, ok := b.handlers[endpoint]
	b.mu.RUnlock()
	if !ok {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("no handler registered")}
	}

	req, err := protocol.NewRequest(method, params, b.nextID())
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	resp := h.Handle(ctx, req)
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}
