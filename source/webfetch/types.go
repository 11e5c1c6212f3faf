package webfetch

import "time"

// FetchOptions tune a single fetch. Zero values fall back to Config.
type FetchOptions struct {
	// MaxContentLength is the byte ceiling for the body.
	MaxContentLength int `json:"max_content_length,omitempty"`

	// TimeoutMs bounds each attempt, including redirects and body read.
	TimeoutMs int `json:"timeout_ms,omitempty"`

	// Headers are added to the request after the default headers.
	Headers map[string]string `json:"headers,omitempty"`

	// AllowedDomains overrides the configured allowlist.
	AllowedDomains []string `json:"allowed_domains,omitempty"`

	// IncludeMetadata adds title and description lines to content blocks. Default true.
	IncludeMetadata *bool `json:"include_metadata,omitempty"`

	// ConvertToMarkdown overrides Config.ConvertToMarkdown for HTML bodies.
	ConvertToMarkdown *bool `json:"convert_to_markdown,omitempty"`

	// FollowRedirects is the redirect cap. Zero disables redirects.
	FollowRedirects *int `json:"follow_redirects,omitempty"`

	// UserAgent overrides the configured User-Agent.
	UserAgent string `json:"user_agent,omitempty"`

	// ExtractMainContent converts only the main content region of HTML pages.
	ExtractMainContent bool `json:"extract_main_content,omitempty"`
}

func (o FetchOptions) includeMetadata() bool {
	return o.IncludeMetadata == nil || *o.IncludeMetadata
}

// ContentMetadata describes a fetched document. It is not modified after
// the fetch that produced it returns.
type ContentMetadata struct {
	URL            string    `json:"url"`
	FinalURL       string    `json:"final_url,omitempty"`
	Title          string    `json:"title,omitempty"`
	Description    string    `json:"description,omitempty"`
	ContentType    string    `json:"content_type"`
	ContentLength  int       `json:"content_length"`
	FetchedAt      time.Time `json:"fetched_at"`
	Truncated      bool      `json:"truncated"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	StatusCode     int       `json:"status_code"`
	Encoding       string    `json:"encoding,omitempty"`
	Language       string    `json:"language,omitempty"`
	CanonicalURL   string    `json:"canonical_url,omitempty"`
	OGImage        string    `json:"og_image,omitempty"`
	Favicon        string    `json:"favicon,omitempty"`
	SiteName       string    `json:"site_name,omitempty"`
}

// ContentResult is the normalized content of one URL.
type ContentResult struct {
	Content  string          `json:"content"`
	Metadata ContentMetadata `json:"metadata"`
}
