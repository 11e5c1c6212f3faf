package urlfetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semfetch/source/webfetch"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
)

// urlFetcherSchema defines the configuration schema.
var urlFetcherSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// consumerAckWait covers a full batch including retries.
const consumerAckWait = 5 * time.Minute

// errMalformedRequest marks requests that redelivery cannot fix.
var errMalformedRequest = errors.New("malformed fetch request")

// publishFunc publishes data to a JetStream subject.
type publishFunc func(ctx context.Context, subject string, data []byte) error

// Component implements the url-fetcher processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger
	platform   component.PlatformMeta

	fetcher     *webfetch.Fetcher
	coordinator *webfetch.Coordinator
	handler     *Handler
	janitor     *webfetch.Janitor
	publish     publishFunc

	// Lifecycle management
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// Metrics
	requestsProcessed atomic.Int64
	urlsFetched       atomic.Int64
	urlsFailed        atomic.Int64
	errors            atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// Option configures a Component built with New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	fetchOpts  []webfetch.Option
}

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers fetch metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithFetchOptions passes extra options to the underlying Fetcher.
func WithFetchOptions(opts ...webfetch.Option) Option {
	return func(o *options) { o.fetchOpts = append(o.fetchOpts, opts...) }
}

// NewComponent creates a new url-fetcher processor component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	c, err := New(config, deps.NATSClient, WithLogger(deps.GetLogger()))
	if err != nil {
		return nil, err
	}
	c.platform = deps.Platform
	return c, nil
}

// New builds a component from a decoded config. natsClient may be nil when
// only the HTTP handlers are used.
func New(config Config, natsClient *natsclient.Client, opts ...Option) (*Component, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	metrics := webfetch.NewMetrics(o.registerer)
	fetchOpts := append([]webfetch.Option{
		webfetch.WithLogger(o.logger),
		webfetch.WithMetrics(metrics),
	}, o.fetchOpts...)
	fetcher := webfetch.NewFetcher(config.Fetch, fetchOpts...)
	coordinator := webfetch.NewCoordinator(fetcher, config.Fetch,
		webfetch.WithCoordinatorLogger(o.logger),
		webfetch.WithCoordinatorMetrics(metrics))

	c := &Component{
		name:        "url-fetcher",
		config:      config,
		natsClient:  natsClient,
		logger:      o.logger,
		fetcher:     fetcher,
		coordinator: coordinator,
		handler:     NewHandler(coordinator, o.logger),
	}
	if natsClient != nil {
		c.publish = func(ctx context.Context, subject string, data []byte) error {
			return natsClient.PublishToStream(ctx, subject, data)
		}
	}
	return c, nil
}

// Fetcher returns the single-URL fetcher.
func (c *Component) Fetcher() *webfetch.Fetcher {
	return c.fetcher
}

// ApplyConfig swaps in new fetch limits and domain policy at runtime.
func (c *Component) ApplyConfig(cfg webfetch.Config) {
	c.mu.Lock()
	c.config.Fetch = cfg
	c.mu.Unlock()
	c.fetcher.ApplyConfig(cfg)
	c.coordinator.ApplyConfig(cfg)
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start begins consuming fetch requests and schedules cache housekeeping.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}
	c.running = true
	c.startTime = time.Now()
	cfg := c.config
	c.mu.Unlock()

	consumer, err := c.ensureConsumer(ctx, cfg)
	if err != nil {
		c.rollbackStart()
		return err
	}

	janitor, err := webfetch.NewJanitor(c.fetcher, cfg.Fetch.GetHousekeeping(), c.logger)
	if err != nil {
		c.rollbackStart()
		return fmt.Errorf("create janitor: %w", err)
	}
	janitor.Start()

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.janitor = janitor
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consumeMessages(runCtx, consumer)
	}()

	c.logger.Info("URL fetcher started",
		"stream", cfg.StreamName,
		"consumer", cfg.ConsumerName,
		"request_subject", cfg.RequestSubject)

	return nil
}

// ensureConsumer looks up the request stream, creating it when absent, and
// attaches the durable consumer.
func (c *Component) ensureConsumer(ctx context.Context, cfg Config) (jetstream.Consumer, error) {
	js, err := c.natsClient.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	stream, err := js.Stream(ctx, cfg.StreamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     cfg.StreamName,
			Subjects: []string{cfg.RequestSubject, cfg.ResultSubject},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", cfg.StreamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       cfg.ConsumerName,
		FilterSubject: cfg.RequestSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       consumerAckWait,
		MaxDeliver:    3,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	return consumer, nil
}

// rollbackStart reverts the running state when Start fails partway through.
func (c *Component) rollbackStart() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// consumeMessages processes incoming fetch requests.
func (c *Component) consumeMessages(ctx context.Context, consumer jetstream.Consumer) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		for msg := range msgs.Messages() {
			if ctx.Err() != nil {
				_ = msg.Nak()
				continue
			}
			c.handleMessage(ctx, msg)
		}

		if msgs.Error() != nil && ctx.Err() == nil {
			c.logger.Debug("Fetch error", "error", msgs.Error())
		}
	}
}

// handleMessage processes a single fetch request message.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	err := c.processRequest(ctx, msg.Data())
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, errMalformedRequest):
		_ = msg.Term()
	default:
		_ = msg.Nak()
	}
}

// processRequest fetches the URLs named in data and publishes the result.
func (c *Component) processRequest(ctx context.Context, data []byte) error {
	c.updateLastActivity()

	req, err := DecodeFetchRequest(data)
	if err != nil {
		c.logger.Warn("Failed to parse fetch request", "error", err)
		c.errors.Add(1)
		return fmt.Errorf("%w: %v", errMalformedRequest, err)
	}

	c.logger.Info("Processing fetch request",
		"correlation_id", req.CorrelationID,
		"urls", len(req.URLs))

	payload := c.handler.Process(ctx, req)
	c.requestsProcessed.Add(1)
	c.urlsFetched.Add(int64(payload.Batch.Summary.SuccessCount))
	c.urlsFailed.Add(int64(payload.Batch.Summary.FailureCount))

	if err := c.publishResult(ctx, payload); err != nil {
		c.logger.Error("Failed to publish fetch result",
			"correlation_id", req.CorrelationID,
			"error", err)
		c.errors.Add(1)
		return err
	}
	return nil
}

// publishResult wraps payload in a BaseMessage and publishes it.
func (c *Component) publishResult(ctx context.Context, payload *URLContentPayload) error {
	if c.publish == nil {
		return fmt.Errorf("no publisher configured")
	}
	msg := message.NewBaseMessage(URLContentType, payload, "semfetch")
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal result message: %w", err)
	}

	c.mu.RLock()
	subject := c.config.ResultSubject
	c.mu.RUnlock()
	return c.publish(ctx, subject, data)
}

// updateLastActivity safely updates the last activity timestamp.
func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

// getLastActivity safely retrieves the last activity timestamp.
func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}

// Stop gracefully stops the component within the given timeout.
func (c *Component) Stop(timeout time.Duration) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	janitor := c.janitor
	c.cancel = nil
	c.janitor = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if janitor != nil {
		janitor.Stop()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("stop timed out after %v", timeout)
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.logger.Info("URL fetcher stopped",
		"requests_processed", c.requestsProcessed.Load(),
		"urls_fetched", c.urlsFetched.Load(),
		"urls_failed", c.urlsFailed.Load(),
		"errors", c.errors.Load())

	return err
}

// Discoverable interface implementation

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "url-fetcher",
		Type:        "processor",
		Description: "Secure URL content retrieval for LLM context assembly",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = buildPort(portDef, component.DirectionInput)
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = buildPort(portDef, component.DirectionOutput)
	}
	return ports
}

// buildPort creates a component.Port from a PortDefinition.
func buildPort(portDef component.PortDefinition, direction component.Direction) component.Port {
	port := component.Port{
		Name:        portDef.Name,
		Direction:   direction,
		Required:    portDef.Required,
		Description: portDef.Description,
	}
	if portDef.Type == "jetstream" {
		port.Config = component.JetStreamPort{
			StreamName: portDef.StreamName,
			Subjects:   []string{portDef.Subject},
		}
	} else {
		port.Config = component.NATSPort{
			Subject: portDef.Subject,
		}
	}
	return port
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return urlFetcherSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	var uptime time.Duration
	if running {
		status = "running"
		uptime = time.Since(startTime)
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.errors.Load()),
		Uptime:     uptime,
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	var errorRate float64
	if total := c.urlsFetched.Load() + c.urlsFailed.Load(); total > 0 {
		errorRate = float64(c.urlsFailed.Load()) / float64(total)
	}
	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: c.getLastActivity(),
	}
}
