package urlfetcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/c360studio/semfetch/source/webfetch"
)

const testPage = `<html><head><title>Example Page</title>
<meta name="description" content="An example"></head>
<body><h1>Hello</h1><p>Some text.</p></body></html>`

// newPageServer serves testPage for every path except /missing.
func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// routeTo dials srv whatever host the URL names.
func routeTo(srv *httptest.Server) webfetch.DialContextFunc {
	target := srv.Listener.Addr().String()
	var d net.Dialer
	return func(ctx context.Context, network, _ string) (net.Conn, error) {
		return d.DialContext(ctx, network, target)
	}
}

// recordingPublisher captures published messages.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages [][]byte
	err      error
}

func (p *recordingPublisher) publish(_ context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, data)
	return nil
}

// payload decodes the n-th published message.
func (p *recordingPublisher) payload(t *testing.T, n int) URLContentPayload {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if n >= len(p.messages) {
		t.Fatalf("expected at least %d published messages, got %d", n+1, len(p.messages))
	}
	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(p.messages[n], &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var payload URLContentPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}

// newTestComponent builds a component whose fetcher reaches srv for any host.
func newTestComponent(t *testing.T, srv *httptest.Server) (*Component, *recordingPublisher) {
	t.Helper()
	config := DefaultConfig()
	delay := 0
	config.Fetch.BatchDelayMs = &delay

	c, err := New(config, nil,
		WithLogger(slog.Default()),
		WithFetchOptions(webfetch.WithDialContext(routeTo(srv))))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	pub := &recordingPublisher{}
	c.publish = pub.publish
	return c, pub
}
