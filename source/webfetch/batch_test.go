package webfetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semfetch/source/weburl"
)

// fakeFetcher returns a canned result or error per URL and tracks concurrency.
type fakeFetcher struct {
	errs  map[string]error
	delay time.Duration

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*ContentResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.errs[rawURL]; err != nil {
		return nil, err
	}
	return &ContentResult{
		Content: "body of " + rawURL,
		Metadata: ContentMetadata{
			URL:            rawURL,
			Title:          "Title " + rawURL,
			Description:    "Description " + rawURL,
			ResponseTimeMs: 10,
		},
	}, nil
}

func testBatchConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchDelayMs = intPtr(1)
	return cfg
}

func urlList(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example.com/", i)
	}
	return urls
}

func TestProcessURLs_Empty(t *testing.T) {
	c := NewCoordinator(&fakeFetcher{}, testBatchConfig())
	_, err := c.ProcessURLs(context.Background(), nil, FetchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoURLs)
	assert.Equal(t, "No URLs provided for processing", err.Error())
}

func TestProcessURLs_TooMany(t *testing.T) {
	cfg := testBatchConfig()
	cfg.MaxURLsPerRequest = 20
	fetcher := &fakeFetcher{}
	c := NewCoordinator(fetcher, cfg)

	_, err := c.ProcessURLs(context.Background(), urlList(21), FetchOptions{})
	require.Error(t, err)
	assert.Equal(t, "Too many URLs: 21. Maximum allowed: 20", err.Error())
	assert.Empty(t, fetcher.calls)
}

func TestProcessURLs_PartialFailure(t *testing.T) {
	urls := urlList(7)
	fetcher := &fakeFetcher{errs: map[string]error{
		urls[1]: &weburl.ValidationError{URL: urls[1], Reason: weburl.ReasonBlockedDomain, Message: "blocked"},
		urls[5]: &FetchError{URL: urls[5], Kind: KindHTTP, StatusCode: 502},
	}}
	c := NewCoordinator(fetcher, testBatchConfig())

	res, err := c.ProcessURLs(context.Background(), urls, FetchOptions{})
	require.NoError(t, err)

	summary := res.Batch.Summary
	assert.Equal(t, len(urls), summary.TotalURLs)
	assert.Equal(t, len(urls), summary.SuccessCount+summary.FailureCount)
	assert.Equal(t, 5, summary.SuccessCount)
	require.Len(t, res.Batch.Failed, 2)
	assert.Len(t, fetcher.calls, len(urls), "a failure never cancels the other fetches")

	assert.Equal(t, urls[1], res.Batch.Failed[0].URL)
	assert.Equal(t, CodeValidation, res.Batch.Failed[0].ErrorCode)
	assert.Equal(t, urls[5], res.Batch.Failed[1].URL)
	assert.Equal(t, "HTTP_502", res.Batch.Failed[1].ErrorCode)

	// Successful results keep input order.
	assert.Equal(t, urls[0], res.Batch.Successful[0].Metadata.URL)
	assert.Equal(t, urls[6], res.Batch.Successful[4].Metadata.URL)
	assert.Len(t, res.Contents, 5)

	wantSize := 0
	for _, r := range res.Batch.Successful {
		wantSize += len(r.Content)
	}
	assert.Equal(t, wantSize, summary.TotalContentSize)
	assert.InDelta(t, 10.0, summary.AverageResponseTimeMs, 0.001)

	_, err = uuid.Parse(res.Batch.RequestID)
	assert.NoError(t, err)
}

func TestProcessURLs_AllFail(t *testing.T) {
	urls := urlList(3)
	errs := make(map[string]error)
	for _, u := range urls {
		errs[u] = fmt.Errorf("dial: %w", &FetchError{URL: u, Kind: KindNetwork})
	}
	c := NewCoordinator(&fakeFetcher{errs: errs}, testBatchConfig())

	res, err := c.ProcessURLs(context.Background(), urls, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Batch.Summary.SuccessCount)
	assert.Equal(t, 3, res.Batch.Summary.FailureCount)
	assert.Zero(t, res.Batch.Summary.AverageResponseTimeMs)
	assert.Empty(t, res.Contents)
	for _, f := range res.Batch.Failed {
		assert.Equal(t, CodeFetch, f.ErrorCode)
	}
}

func TestProcessURLs_BoundedConcurrency(t *testing.T) {
	fetcher := &fakeFetcher{delay: 5 * time.Millisecond}
	c := NewCoordinator(fetcher, testBatchConfig())

	res, err := c.ProcessURLs(context.Background(), urlList(12), FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Batch.Summary.SuccessCount)
	assert.LessOrEqual(t, fetcher.peak.Load(), int64(DefaultBatchSize))
}

func TestProcessURLs_BatchDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchDelayMs = intPtr(40)
	c := NewCoordinator(&fakeFetcher{}, cfg)

	start := time.Now()
	_, err := c.ProcessURLs(context.Background(), urlList(11), FetchOptions{})
	require.NoError(t, err)

	// Three batches, two pauses between them and none after the last.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestProcessURLs_CancelledBetweenBatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	cfg.BatchDelayMs = intPtr(10_000)
	fetcher := &fakeFetcher{}
	c := NewCoordinator(fetcher, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	urls := urlList(5)
	res, err := c.ProcessURLs(ctx, urls, FetchOptions{})
	require.NoError(t, err)

	assert.Len(t, fetcher.calls, 2, "no fetch starts after cancellation")
	assert.Equal(t, 5, res.Batch.Summary.TotalURLs)
	assert.Equal(t, 2, res.Batch.Summary.SuccessCount)
	assert.Len(t, res.Contents, 2)
	require.Len(t, res.Batch.Failed, 3)
	for i, failed := range res.Batch.Failed {
		assert.Equal(t, urls[i+2], failed.URL)
		assert.Equal(t, CodeFetch, failed.ErrorCode)
		assert.Contains(t, failed.Error, context.DeadlineExceeded.Error())
	}
}

func TestProcessURLs_ContentBlocks(t *testing.T) {
	urls := urlList(1)
	c := NewCoordinator(&fakeFetcher{}, testBatchConfig())

	res, err := c.ProcessURLs(context.Background(), urls, FetchOptions{})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	block := res.Contents[0]
	assert.True(t, strings.HasPrefix(block, "## Content from "+urls[0]+"\n\n"))
	assert.Contains(t, block, "**Title:** Title "+urls[0])
	assert.Contains(t, block, "**Description:** Description "+urls[0])
	assert.True(t, strings.HasSuffix(block, "body of "+urls[0]))

	res, err = c.ProcessURLs(context.Background(), urls, FetchOptions{IncludeMetadata: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "## Content from "+urls[0]+"\n\nbody of "+urls[0], res.Contents[0])
}

func TestProcessURLs_ApplyConfig(t *testing.T) {
	c := NewCoordinator(&fakeFetcher{}, testBatchConfig())

	cfg := testBatchConfig()
	cfg.MaxURLsPerRequest = 2
	c.ApplyConfig(cfg)

	_, err := c.ProcessURLs(context.Background(), urlList(3), FetchOptions{})
	var tooMany *TooManyURLsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 2, tooMany.Max)
}
