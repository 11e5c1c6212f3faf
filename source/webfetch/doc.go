// Package webfetch retrieves user-supplied URLs safely and turns them into
// text blocks for generation requests.
//
// A Fetcher applies, in order: URL validation (weburl), a per-host fixed
// window rate limit, a 15 minute result cache, and a retrying HTTP GET with a
// redirect cap, a byte ceiling and a content-type allow-list. Connections are
// made through a dialer that refuses private addresses after DNS resolution.
// HTML bodies are converted to Markdown by webcontent.
//
// Rate limit budget is only consumed by successful network fetches; rejected,
// failed and cached requests do not count.
//
// A Coordinator fans a list of URLs out to a Fetcher in batches of five,
// pausing between batches, and reports every URL as either a result or a
// FailedURL with a stable error code:
//
//	VALIDATION_ERROR   rejected before any network access
//	HTTP_<status>      the server answered with a non-2xx status
//	FETCH_ERROR        network, redirect, content-type or rate limit failure
//	UNKNOWN_ERROR      anything else
package webfetch
