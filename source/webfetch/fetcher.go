package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/c360studio/semfetch/source/webcontent"
	"github.com/c360studio/semfetch/source/weburl"
)

// allowedContentTypes are the media types a response may carry.
var allowedContentTypes = map[string]bool{
	"text/html":             true,
	"text/plain":            true,
	"text/xml":              true,
	"text/markdown":         true,
	"application/xml":       true,
	"application/xhtml+xml": true,
	"application/json":      true,
	"application/ld+json":   true,
}

var errTooManyRedirects = errors.New("too many redirects")

// DialContextFunc dials a network address.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Fetcher retrieves and normalizes URL content. Every request is validated,
// rate limited per host and cached. It is safe for concurrent use.
type Fetcher struct {
	mu     sync.RWMutex
	config Config

	validator  *weburl.Validator
	limiter    *RateLimiter
	cache      *ResultCache
	normalizer *webcontent.Normalizer
	client     *http.Client
	retry      RetryConfig
	clock      Clock
	metrics    *Metrics
	logger     *slog.Logger
	dial       DialContextFunc
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClock sets the clock used by the cache, limiter and metadata.
func WithClock(clock Clock) Option {
	return func(f *Fetcher) { f.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRetryConfig overrides DefaultRetryConfig.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(f *Fetcher) { f.retry = cfg }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithDialContext replaces the address-checking dialer. Intended for tests
// that route requests to a local server.
func WithDialContext(dial DialContextFunc) Option {
	return func(f *Fetcher) { f.dial = dial }
}

// NewFetcher creates a Fetcher for cfg.
func NewFetcher(cfg Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		config:     cfg,
		normalizer: webcontent.NewNormalizer(),
		retry:      DefaultRetryConfig(),
		clock:      SystemClock{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.metrics == nil {
		f.metrics = NewMetrics(nil)
	}
	if f.dial == nil {
		f.dial = safeDialContext(&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		})
	}

	f.validator = weburl.NewValidator(weburl.WithPolicy(cfg.Policy()), weburl.WithLogger(f.logger))
	f.limiter = NewRateLimiter(f.clock)
	f.cache = NewResultCache(f.clock)
	f.client = &http.Client{
		Transport: &http.Transport{
			DialContext:         f.dial,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return f
}

// safeDialContext resolves the host and refuses to connect if any address is
// private, so a public name cannot be rebound to an internal one.
func safeDialContext(dialer *net.Dialer) DialContextFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}

		for _, ipAddr := range ips {
			if weburl.IsPrivateIP(ipAddr.IP) {
				return nil, &weburl.ValidationError{
					URL:     addr,
					Host:    host,
					Reason:  weburl.ReasonBlockedDomain,
					Message: fmt.Sprintf("host %s resolves to private address %s", host, ipAddr.IP),
				}
			}
		}

		var lastErr error
		for _, ipAddr := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no addresses for %s", host)
		}
		return nil, fmt.Errorf("failed to connect to any resolved IP: %w", lastErr)
	}
}

// Config returns the current configuration.
func (f *Fetcher) Config() Config {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.config
}

// ApplyConfig replaces the configuration and the validator domain policy.
// Fetches already in flight keep the settings they started with.
func (f *Fetcher) ApplyConfig(cfg Config) {
	f.mu.Lock()
	f.config = cfg
	f.mu.Unlock()
	f.validator.SetPolicy(cfg.Policy())
	f.logger.Info("Fetch configuration applied",
		"allowed_domains", len(cfg.AllowedDomains),
		"blocklisted_domains", len(cfg.BlocklistedDomains))
}

// Validator returns the URL validator, for statistics and dry-run checks.
func (f *Fetcher) Validator() *weburl.Validator {
	return f.validator
}

// Fetch retrieves rawURL. Errors are *weburl.ValidationError for rejected
// URLs and *FetchError for retrieval failures.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*ContentResult, error) {
	cfg := f.Config()

	if err := f.validator.Validate(rawURL, opts.AllowedDomains); err != nil {
		f.metrics.fetches.WithLabelValues(outcomeValidation).Inc()
		return nil, err
	}

	host := weburl.ExtractDomain(rawURL)
	if err := f.limiter.Check(host); err != nil {
		f.metrics.fetches.WithLabelValues(outcomeRateLimited).Inc()
		return nil, &FetchError{URL: rawURL, Kind: KindRateLimited, Reason: weburl.ReasonBlockedDomain, Err: err}
	}

	if cached, ok := f.cache.Get(rawURL); ok {
		f.metrics.fetches.WithLabelValues(outcomeCacheHit).Inc()
		return &cached, nil
	}

	result, attempts, err := Retry(ctx, f.retry, f.logger, func(ctx context.Context) (*ContentResult, error) {
		return f.fetchOnce(ctx, rawURL, opts, cfg)
	})
	f.metrics.attempts.Observe(float64(attempts))
	if err != nil {
		f.metrics.fetches.WithLabelValues(outcomeError).Inc()
		f.logger.Debug("Fetch failed", "url", rawURL, "attempts", attempts, "error", err)
		return nil, err
	}

	f.cache.Put(rawURL, *result)
	f.limiter.Record(host)
	f.metrics.fetches.WithLabelValues(outcomeSuccess).Inc()
	f.metrics.cacheEntries.Set(float64(f.cache.Len()))
	return result, nil
}

// fetchOnce performs one GET and normalizes the body.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, opts FetchOptions, cfg Config) (*ContentResult, error) {
	timeout := cfg.GetDefaultTimeout()
	if opts.TimeoutMs > 0 {
		timeout = time.Duration(opts.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	f.setHeaders(req, opts, cfg)

	maxRedirects := cfg.GetMaxRedirects()
	if opts.FollowRedirects != nil {
		maxRedirects = *opts.FollowRedirects
	}

	start := time.Now()
	resp, err := f.clientFor(maxRedirects, opts.AllowedDomains).Do(req)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status, Kind: KindHTTP}
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	}
	if !allowedContentTypes[mediaType] {
		return nil, &FetchError{
			URL:  rawURL,
			Kind: KindContentType,
			Err:  fmt.Errorf("unsupported content type %q", contentType),
		}
	}

	ceiling := cfg.GetMaxContentBytes()
	if opts.MaxContentLength > 0 {
		ceiling = opts.MaxContentLength
	}
	body, truncated, err := readBody(resp.Body, contentType, ceiling)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: KindNetwork, Err: fmt.Errorf("read body: %w", err)}
	}
	elapsed := time.Since(start)
	f.metrics.duration.Observe(elapsed.Seconds())
	f.metrics.contentBytes.Add(float64(len(body)))
	if truncated {
		f.metrics.truncated.Inc()
	}

	meta := ContentMetadata{
		URL:            rawURL,
		ContentType:    contentType,
		ContentLength:  len(body),
		FetchedAt:      f.clock.Now(),
		Truncated:      truncated,
		ResponseTimeMs: elapsed.Milliseconds(),
		StatusCode:     resp.StatusCode,
		Encoding:       params["charset"],
	}
	if final := resp.Request.URL.String(); final != rawURL {
		meta.FinalURL = final
	}

	isHTML := mediaType == "text/html" || mediaType == "application/xhtml+xml"
	if isHTML {
		mergeHTMLMetadata(&meta, webcontent.ExtractHTMLMetadata(body))
	}

	convert := cfg.GetConvertToMarkdown()
	if opts.ConvertToMarkdown != nil {
		convert = *opts.ConvertToMarkdown
	}
	content, err := f.normalizer.Normalize(body, isHTML, webcontent.Options{
		ConvertToMarkdown: convert,
		MainContentOnly:   opts.ExtractMainContent,
	})
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", rawURL, err)
	}

	return &ContentResult{Content: content, Metadata: meta}, nil
}

func (f *Fetcher) setHeaders(req *http.Request, opts FetchOptions, cfg Config) {
	userAgent := cfg.GetUserAgent()
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")
	// Accept-Encoding is left to the transport, which then decompresses gzip.
	for k, v := range opts.Headers {
		if strings.EqualFold(k, "Accept-Encoding") {
			continue
		}
		req.Header.Set(k, v)
	}
}

// clientFor returns a client that follows at most maxRedirects redirects and
// validates every redirect target.
func (f *Fetcher) clientFor(maxRedirects int, allowedDomains []string) *http.Client {
	client := *f.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("%w (max %d)", errTooManyRedirects, maxRedirects)
		}
		if err := f.validator.Validate(req.URL.String(), allowedDomains); err != nil {
			return fmt.Errorf("redirect blocked: %w", err)
		}
		return nil
	}
	return &client
}

// classifyTransportError maps a client.Do error. Blocked redirects and
// private resolved addresses keep their ValidationError so they are neither
// retried nor reported as network failures.
func classifyTransportError(rawURL string, err error) error {
	if weburl.IsValidationError(err) {
		return err
	}
	if errors.Is(err, errTooManyRedirects) {
		return &FetchError{URL: rawURL, Kind: KindRedirect, Err: err}
	}
	return &FetchError{URL: rawURL, Kind: KindNetwork, Err: err}
}

// readBody decodes the body to UTF-8 and reads at most ceiling bytes of it.
// A longer body is cut at the last rune boundary at or below the ceiling.
func readBody(r io.Reader, contentType string, ceiling int) (string, bool, error) {
	decoded, err := charset.NewReader(r, contentType)
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	data, err := io.ReadAll(io.LimitReader(decoded, int64(ceiling)+1))
	if err != nil {
		return "", false, err
	}
	if len(data) <= ceiling {
		return string(data), false, nil
	}

	cut := ceiling
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return string(data[:cut]), true, nil
}

func mergeHTMLMetadata(meta *ContentMetadata, hm webcontent.HTMLMetadata) {
	meta.Title = hm.Title
	meta.Description = hm.Description
	meta.Language = hm.Language
	meta.CanonicalURL = hm.CanonicalURL
	meta.OGImage = hm.OGImage
	meta.Favicon = hm.Favicon
	meta.SiteName = hm.SiteName
}
