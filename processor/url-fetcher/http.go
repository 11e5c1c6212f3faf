package urlfetcher

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/c360studio/semfetch/source/webfetch"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 1 << 20 // 1 MB

// ValidateRequest is the body of POST <prefix>/validate.
type ValidateRequest struct {
	URL            string   `json:"url"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// StatsResponse is the body returned by GET <prefix>/stats.
type StatsResponse struct {
	webfetch.Stats
	RequestsProcessed int64 `json:"requests_processed"`
	URLsFetched       int64 `json:"urls_fetched"`
	URLsFailed        int64 `json:"urls_failed"`
}

// RegisterHTTPHandlers registers the url-fetcher HTTP handlers under prefix:
//
//	POST <prefix>/fetch
//	POST <prefix>/validate
//	GET  <prefix>/stats
func (c *Component) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc(prefix+"fetch", c.handleFetch)
	mux.HandleFunc(prefix+"validate", c.handleValidate)
	mux.HandleFunc(prefix+"stats", c.handleStats)
}

// handleFetch runs a batch fetch and returns the content payload.
func (c *Component) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FetchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c.updateLastActivity()
	payload := c.handler.Process(r.Context(), req)
	c.requestsProcessed.Add(1)
	c.urlsFetched.Add(int64(payload.Batch.Summary.SuccessCount))
	c.urlsFailed.Add(int64(payload.Batch.Summary.FailureCount))

	status := http.StatusOK
	switch {
	case payload.ErrorCode == webfetch.CodeValidation:
		status = http.StatusBadRequest
	case payload.Error != "":
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, payload)
}

// handleValidate screens a URL without fetching it.
func (c *Component) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ValidateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, c.fetcher.Validator().Check(req.URL, req.AllowedDomains))
}

// handleStats reports validator counters and cache state.
func (c *Component) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:             c.fetcher.Stats(),
		RequestsProcessed: c.requestsProcessed.Load(),
		URLsFetched:       c.urlsFetched.Load(),
		URLsFailed:        c.urlsFailed.Load(),
	})
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
