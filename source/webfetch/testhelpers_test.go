package webfetch

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// fastRetry keeps the retry policy shape with millisecond backoff.
var fastRetry = RetryConfig{
	MaxAttempts:       3,
	BackoffBase:       time.Millisecond,
	BackoffMultiplier: 2,
	MaxBackoff:        5 * time.Millisecond,
}

// testServer counts requests and serves them with handler.
type testServer struct {
	*httptest.Server
	hits atomic.Int64
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// routeTo dials the test server whatever host the URL names, so URLs such as
// http://example.com/ pass validation and still reach the local server.
func routeTo(ts *testServer) DialContextFunc {
	target := ts.Listener.Addr().String()
	var d net.Dialer
	return func(ctx context.Context, network, _ string) (net.Conn, error) {
		return d.DialContext(ctx, network, target)
	}
}

func newTestFetcher(t *testing.T, ts *testServer, clock Clock) *Fetcher {
	t.Helper()
	if clock == nil {
		clock = NewManualClock(testEpoch)
	}
	return NewFetcher(DefaultConfig(),
		WithClock(clock),
		WithRetryConfig(fastRetry),
		WithDialContext(routeTo(ts)))
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }
