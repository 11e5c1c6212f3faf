package urlfetcher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semfetch/source/webfetch"
	"github.com/c360studio/semstreams/component"
)

func TestNewComponent(t *testing.T) {
	tests := []struct {
		name      string
		rawConfig json.RawMessage
		wantErr   bool
	}{
		{"empty config uses defaults", json.RawMessage(`{}`), false},
		{"custom stream", json.RawMessage(`{"stream_name":"FETCH"}`), false},
		{"invalid JSON", json.RawMessage(`{invalid json}`), true},
		{"invalid config", json.RawMessage(`{"stream_name":""}`), true},
		{"invalid fetch config", json.RawMessage(`{"fetch":{"default_timeout_ms":-1}}`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := component.Dependencies{Logger: slog.Default()}
			_, err := NewComponent(tt.rawConfig, deps)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewComponent() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestComponent_Metadata(t *testing.T) {
	comp, err := NewComponent(json.RawMessage(`{}`), component.Dependencies{Logger: slog.Default()})
	if err != nil {
		t.Fatal(err)
	}
	c := comp.(*Component)

	if c.Meta().Name != "url-fetcher" {
		t.Errorf("Meta().Name = %q", c.Meta().Name)
	}
	inputs := c.InputPorts()
	if len(inputs) != 1 || inputs[0].Name != "fetch.in" {
		t.Fatalf("unexpected input ports %+v", inputs)
	}
	if _, ok := inputs[0].Config.(component.JetStreamPort); !ok {
		t.Errorf("input port should be a JetStream port, got %T", inputs[0].Config)
	}
	if outputs := c.OutputPorts(); len(outputs) != 1 || outputs[0].Name != "content.out" {
		t.Errorf("unexpected output ports %+v", outputs)
	}
	if h := c.Health(); h.Healthy || h.Status != "stopped" {
		t.Errorf("new component should be stopped, got %+v", h)
	}
}

func TestComponent_StartWithoutNATSClient(t *testing.T) {
	c, _ := newTestComponent(t, newPageServer(t))

	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	err := c.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "NATS client required") {
		t.Fatalf("Start() error = %v, want NATS client required", err)
	}
	if err := c.Stop(time.Second); err != nil {
		t.Errorf("Stop() on a stopped component should not error: %v", err)
	}
}

func TestComponent_ProcessRequest(t *testing.T) {
	c, pub := newTestComponent(t, newPageServer(t))

	data := []byte(`{"correlation_id":"corr-9","urls":["http://example.com/","http://example.com/missing"]}`)
	if err := c.processRequest(context.Background(), data); err != nil {
		t.Fatalf("processRequest() error = %v", err)
	}

	if len(pub.subjects) != 1 || pub.subjects[0] != "url.fetch.result" {
		t.Fatalf("unexpected subjects %v", pub.subjects)
	}
	payload := pub.payload(t, 0)
	if payload.CorrelationID != "corr-9" {
		t.Errorf("CorrelationID = %q", payload.CorrelationID)
	}
	if payload.Batch.Summary.SuccessCount != 1 || payload.Batch.Summary.FailureCount != 1 {
		t.Errorf("unexpected summary %+v", payload.Batch.Summary)
	}
	if len(payload.Batch.Failed) != 1 || payload.Batch.Failed[0].ErrorCode != "HTTP_404" {
		t.Errorf("unexpected failures %+v", payload.Batch.Failed)
	}
	if len(payload.Contents) != 1 || !strings.Contains(payload.Contents[0], "**Title:** Example Page") {
		t.Errorf("unexpected contents %q", payload.Contents)
	}
	if c.requestsProcessed.Load() != 1 || c.urlsFetched.Load() != 1 || c.urlsFailed.Load() != 1 {
		t.Errorf("counters not updated: %d %d %d",
			c.requestsProcessed.Load(), c.urlsFetched.Load(), c.urlsFailed.Load())
	}
	if c.DataFlow().ErrorRate != 0.5 {
		t.Errorf("ErrorRate = %v, want 0.5", c.DataFlow().ErrorRate)
	}
}

func TestComponent_ProcessRequestRejected(t *testing.T) {
	c, pub := newTestComponent(t, newPageServer(t))

	if err := c.processRequest(context.Background(), []byte(`{"urls":[]}`)); err != nil {
		t.Fatalf("processRequest() error = %v", err)
	}
	payload := pub.payload(t, 0)
	if payload.ErrorCode != webfetch.CodeValidation || payload.Error != "No URLs provided for processing" {
		t.Errorf("unexpected rejection %q %q", payload.ErrorCode, payload.Error)
	}
}

func TestComponent_ProcessRequestMalformed(t *testing.T) {
	c, pub := newTestComponent(t, newPageServer(t))

	err := c.processRequest(context.Background(), []byte(`not json`))
	if !errors.Is(err, errMalformedRequest) {
		t.Fatalf("processRequest() error = %v, want errMalformedRequest", err)
	}
	if len(pub.messages) != 0 {
		t.Error("malformed requests should not publish")
	}
	if c.Health().ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", c.Health().ErrorCount)
	}
}

func TestComponent_ProcessRequestPublishFailure(t *testing.T) {
	c, pub := newTestComponent(t, newPageServer(t))
	pub.err = errors.New("stream unavailable")

	err := c.processRequest(context.Background(), []byte(`{"urls":["http://example.com/"]}`))
	if err == nil || errors.Is(err, errMalformedRequest) {
		t.Fatalf("processRequest() error = %v, want publish error", err)
	}
}

func TestComponent_ApplyConfig(t *testing.T) {
	c, pub := newTestComponent(t, newPageServer(t))

	cfg := c.config.Fetch
	cfg.MaxURLsPerRequest = 1
	cfg.BlocklistedDomains = []string{"example.com"}
	c.ApplyConfig(cfg)

	if got := c.Fetcher().Config().MaxURLsPerRequest; got != 1 {
		t.Errorf("fetcher MaxURLsPerRequest = %d, want 1", got)
	}

	if err := c.processRequest(context.Background(), []byte(`{"urls":["http://a.test.org/","http://b.test.org/"]}`)); err != nil {
		t.Fatal(err)
	}
	if payload := pub.payload(t, 0); payload.Error != "Too many URLs: 2. Maximum allowed: 1" {
		t.Errorf("coordinator did not pick up the new limit: %q", payload.Error)
	}

	if err := c.processRequest(context.Background(), []byte(`{"urls":["http://example.com/"]}`)); err != nil {
		t.Fatal(err)
	}
	payload := pub.payload(t, 1)
	if len(payload.Batch.Failed) != 1 || payload.Batch.Failed[0].ErrorCode != webfetch.CodeValidation {
		t.Errorf("blocklisted domain should fail validation, got %+v", payload.Batch.Failed)
	}
}
