// Package urlfetcher provides a NATS consumer component that retrieves URL
// content for LLM context assembly.
//
// # Overview
//
// The url-fetcher consumes FetchRequest messages, fetches every URL through
// the webfetch pipeline (validation, per-host rate limiting, caching, retry,
// normalization) and publishes a URLContentPayload with the formatted content
// blocks and the batch outcome.
//
// # Messages
//
// Requests arrive on "url.fetch.request.>" in the URLFETCH stream:
//
//	{"correlation_id": "abc", "urls": ["https://example.com"], "options": {"timeout_ms": 5000}}
//
// Results are published to "url.fetch.result" wrapped in a semstreams
// BaseMessage of type url.content.v1. A request rejected as a whole (no URLs,
// too many URLs) still produces a result with error and error_code set.
// Malformed JSON is terminated rather than redelivered.
//
// # HTTP
//
// RegisterHTTPHandlers exposes the same pipeline over HTTP:
//
//	POST <prefix>/fetch     FetchRequest -> URLContentPayload
//	POST <prefix>/validate  {"url": "..."} -> weburl.Verdict
//	GET  <prefix>/stats     validator counters, cache and rate limiter sizes
//
// # Housekeeping
//
// While running, a cron janitor sweeps expired cache entries and idle rate
// limiter windows on the schedule in Config.Fetch.Housekeeping.
package urlfetcher
