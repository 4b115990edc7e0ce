package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/leaguemesh/protocol"
)

// countingHandler tracks how often it is hit before delegating.
type countingHandler struct {
	hits  atomic.Int64
	inner Handler
}

func (c *countingHandler) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	c.hits.Add(1)
	return c.inner.Handle(ctx, req)
}

func fastClient() *Client {
	return NewClient(func(o *ClientOptions) {
		o.MaxTries = 2
		o.InitialInterval = 10 * time.Millisecond
		o.HTTPClient = &http.Client{Timeout: time.Second}
	})
}

func TestHTTPRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(echoHandler{}, nil)
	addr, err := srv.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	raw, err := fastClient().Call(ctx, "http://"+addr, "any_method", map[string]string{"ping": "pong"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "pong", out["ping"])
}

func TestHTTPClientDoesNotRetryRPCErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counting := &countingHandler{inner: faultHandler{}}
	srv := NewServer(counting, nil)
	addr, err := srv.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	_, err = fastClient().Call(ctx, "http://"+addr, "any_method", nil)

	var rpcErr *protocol.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, protocol.RPCCodeAuth, rpcErr.Code)
	assert.Equal(t, int64(1), counting.hits.Load())
}

func TestHTTPClientRetriesDeliveryFailures(t *testing.T) {
	// No listener behind this address; every attempt is a delivery failure.
	_, err := fastClient().Call(context.Background(), "http://127.0.0.1:1", "any_method", nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

func TestHTTPServerRejectsNonRPCRequests(t *testing.T) {
	srv := NewServer(echoHandler{}, nil)

	t.Run("wrong path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/other", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong verb", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RPCPath, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, RPCPath, strings.NewReader("{{")))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp protocol.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, protocol.RPCCodeParse, resp.Error.Code)
	})
}

func TestHTTPServerShutsDownOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	srv := NewServer(echoHandler{}, nil)
	addr, err := srv.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		_, err := fastClient().Call(context.Background(), "http://"+addr, "any_method", nil)
		var terr *TransportError
		return errors.As(err, &terr)
	}, 2*time.Second, 50*time.Millisecond)
}
