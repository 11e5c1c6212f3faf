package webfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoURLs is returned by ProcessURLs for an empty URL list.
var ErrNoURLs = errors.New("No URLs provided for processing") //nolint:staticcheck // message is part of the API

// TooManyURLsError is returned when a request exceeds MaxURLsPerRequest.
type TooManyURLsError struct {
	Count int
	Max   int
}

func (e *TooManyURLsError) Error() string {
	return fmt.Sprintf("Too many URLs: %d. Maximum allowed: %d", e.Count, e.Max)
}

// URLFetcher fetches a single URL.
type URLFetcher interface {
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*ContentResult, error)
}

// FailedURL records one URL that could not be fetched.
type FailedURL struct {
	URL       string `json:"url"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// BatchSummary aggregates a batch request.
type BatchSummary struct {
	TotalURLs             int     `json:"total_urls"`
	SuccessCount          int     `json:"success_count"`
	FailureCount          int     `json:"failure_count"`
	TotalContentSize      int     `json:"total_content_size"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
}

// BatchResult is the outcome of every URL in a request, in input order.
type BatchResult struct {
	RequestID  string          `json:"request_id"`
	Successful []ContentResult `json:"successful"`
	Failed     []FailedURL     `json:"failed"`
	Summary    BatchSummary    `json:"summary"`
}

// ContextResult pairs the consumer-facing content blocks with the batch result.
type ContextResult struct {
	Contents []string    `json:"contents"`
	Batch    BatchResult `json:"batch"`
}

// Coordinator fetches lists of URLs in fixed-size concurrent batches.
type Coordinator struct {
	fetcher URLFetcher
	logger  *slog.Logger
	metrics *Metrics

	mu     sync.RWMutex
	config Config
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCoordinatorMetrics sets the Prometheus collectors.
func WithCoordinatorMetrics(m *Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCoordinator creates a Coordinator that fetches through fetcher.
func NewCoordinator(fetcher URLFetcher, cfg Config, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		fetcher: fetcher,
		config:  cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// ApplyConfig replaces the batch limits.
func (c *Coordinator) ApplyConfig(cfg Config) {
	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()
}

type fetchOutcome struct {
	result *ContentResult
	err    error
}

// ProcessURLs fetches urls in batches of Config.BatchSize. URLs in a batch
// are fetched concurrently; batches run one after another with
// Config.BatchDelay between them. A failed URL never affects the others. If
// ctx ends between batches, the URLs not yet started are reported as failed
// with FETCH_ERROR alongside the results already collected.
func (c *Coordinator) ProcessURLs(ctx context.Context, urls []string, opts FetchOptions) (*ContextResult, error) {
	c.mu.RLock()
	cfg := c.config
	c.mu.RUnlock()

	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	if limit := cfg.GetMaxURLsPerRequest(); len(urls) > limit {
		return nil, &TooManyURLsError{Count: len(urls), Max: limit}
	}

	requestID := uuid.NewString()
	c.metrics.batchURLs.Observe(float64(len(urls)))
	c.logger.Debug("Processing URL batch", "request_id", requestID, "urls", len(urls))

	outcomes := make([]fetchOutcome, len(urls))
	size := cfg.GetBatchSize()
	fetched := 0
batches:
	for start := 0; start < len(urls); start += size {
		end := min(start+size, len(urls))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := c.fetcher.Fetch(ctx, urls[i], opts)
				outcomes[i] = fetchOutcome{result: result, err: err}
			}()
		}
		wg.Wait()
		fetched = end

		if end < len(urls) {
			select {
			case <-ctx.Done():
				break batches
			case <-time.After(cfg.GetBatchDelay()):
			}
		}
	}

	// URLs left over after cancellation fail on their own; completed ones are kept.
	if fetched < len(urls) {
		c.logger.Warn("URL batch interrupted",
			"request_id", requestID,
			"skipped", len(urls)-fetched,
			"error", ctx.Err())
		for i := fetched; i < len(urls); i++ {
			outcomes[i] = fetchOutcome{err: &FetchError{URL: urls[i], Kind: KindCancelled, Err: ctx.Err()}}
		}
	}

	batch := c.assemble(requestID, urls, outcomes)
	contents := make([]string, 0, len(batch.Successful))
	for _, r := range batch.Successful {
		contents = append(contents, FormatContentBlock(r, opts.includeMetadata()))
	}

	c.logger.Info("URL batch processed",
		"request_id", requestID,
		"success", batch.Summary.SuccessCount,
		"failed", batch.Summary.FailureCount)

	return &ContextResult{Contents: contents, Batch: batch}, nil
}

func (c *Coordinator) assemble(requestID string, urls []string, outcomes []fetchOutcome) BatchResult {
	batch := BatchResult{
		RequestID:  requestID,
		Successful: []ContentResult{},
		Failed:     []FailedURL{},
	}

	var totalResponseMs int64
	for i, o := range outcomes {
		if o.err != nil || o.result == nil {
			err := o.err
			if err == nil {
				err = errors.New("fetch returned no result")
			}
			batch.Failed = append(batch.Failed, FailedURL{
				URL:       urls[i],
				Error:     err.Error(),
				ErrorCode: ErrorCode(err),
			})
			continue
		}
		batch.Successful = append(batch.Successful, *o.result)
		batch.Summary.TotalContentSize += len(o.result.Content)
		totalResponseMs += o.result.Metadata.ResponseTimeMs
	}

	batch.Summary.TotalURLs = len(urls)
	batch.Summary.SuccessCount = len(batch.Successful)
	batch.Summary.FailureCount = len(batch.Failed)
	if n := batch.Summary.SuccessCount; n > 0 {
		batch.Summary.AverageResponseTimeMs = float64(totalResponseMs) / float64(n)
	}
	c.metrics.batchFailed.Add(float64(batch.Summary.FailureCount))
	return batch
}

// FormatContentBlock renders a result as a text block naming its source.
func FormatContentBlock(r ContentResult, includeMetadata bool) string {
	var sb strings.Builder
	sb.WriteString("## Content from " + r.Metadata.URL + "\n\n")
	if includeMetadata {
		if r.Metadata.Title != "" {
			sb.WriteString("**Title:** " + r.Metadata.Title + "\n\n")
		}
		if r.Metadata.Description != "" {
			sb.WriteString("**Description:** " + r.Metadata.Description + "\n\n")
		}
	}
	sb.WriteString(r.Content)
	return sb.String()
}
