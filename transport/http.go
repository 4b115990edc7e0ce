package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hupe1980/leaguemesh/logging"
	"github.com/hupe1980/leaguemesh/protocol"
)

// RPCPath is the single endpoint path every agent serves.
const RPCPath = "/rpc"

// ClientOptions configures an HTTP Client.
type ClientOptions struct {
	// HTTPClient performs the underlying requests. Defaults to a client with
	// a 35s timeout, above the longest protocol deadline.
	HTTPClient *http.Client

	// MaxTries bounds delivery attempts per call (including the first).
	MaxTries uint

	// InitialInterval seeds the exponential backoff between attempts.
	InitialInterval time.Duration

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Client is an HTTP Caller posting JSON-RPC requests to agent endpoints.
// Transient delivery failures are retried with exponential backoff; RPC-level
// errors are returned immediately and never retried.
type Client struct {
	opts   ClientOptions
	mu     sync.Mutex
	seq    int
	logger logging.Logger
}

// NewClient constructs an HTTP client with optional overrides.
func NewClient(optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		HTTPClient:      &http.Client{Timeout: 35 * time.Second},
		MaxTries:        3,
		InitialInterval: 500 * time.Millisecond,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{opts: opts, logger: opts.Logger}
}

func (c *Client) nextID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Call posts a JSON-RPC request to endpoint, retrying delivery failures.
func (c *Client) Call(ctx context.Context, endpoint, method string, params any) (json.RawMessage, error) {
	req, err := protocol.NewRequest(method, params, c.nextID())
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	operation := func() (json.RawMessage, error) {
		raw, err := c.post(ctx, endpoint, body)
		if err != nil {
			c.logger.Warn("delivery failed, will retry", "endpoint", endpoint, "method", method, "error", err.Error())
			return nil, err
		}
		return raw, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.InitialInterval

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.opts.MaxTries),
	)
	if err != nil {
		var rpcErr *protocol.RPCError
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		var terr *TransportError
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+RPCPath, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		// Non-200 means the agent is up but refused the call; retrying the
		// same payload will not help.
		return nil, backoff.Permanent(&TransportError{Endpoint: endpoint,
			Err: fmt.Errorf("http status %d", httpResp.StatusCode)})
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, backoff.Permanent(&TransportError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)})
	}
	if resp.Error != nil {
		return nil, backoff.Permanent(error(resp.Error))
	}
	return resp.Result, nil
}

// Server exposes a Handler over HTTP at RPCPath.
type Server struct {
	handler Handler
	logger  logging.Logger
	httpSrv *http.Server
}

// NewServer constructs a server for the given handler.
func NewServer(handler Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Server{handler: handler, logger: logger}
}

// ServeHTTP implements http.Handler for a single JSON-RPC endpoint.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != RPCPath {
		http.NotFound(w, r)
		return
	}

	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, Fault(0, protocol.RPCCodeParse, fmt.Errorf("parse error: %w", err), nil))
		return
	}

	resp := s.handler.Handle(r.Context(), req)
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp protocol.Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Listen starts serving on addr until the context is cancelled. It returns
// the bound address once listening, useful with ":0" in tests.
func (s *Server) Listen(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", &TransportError{Endpoint: addr, Err: err}
	}

	s.httpSrv = &http.Server{Handler: s, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "addr", addr, "error", err.Error())
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	return ln.Addr().String(), nil
}
