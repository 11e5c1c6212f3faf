package urlfetcher

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semfetch/source/webfetch"
	"github.com/c360studio/semfetch/source/weburl"
)

// registerHandlers wires the component's handlers into a fresh mux and returns a test server.
func registerHandlers(t *testing.T, c *Component) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	c.RegisterHTTPHandlers("api/fetch", mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleFetch(t *testing.T) {
	c, _ := newTestComponent(t, newPageServer(t))
	api := registerHandlers(t, c)

	resp := postJSON(t, api.URL+"/api/fetch/fetch", FetchRequest{URLs: []string{"http://example.com/"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload URLContentPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Batch.Summary.SuccessCount)
	require.Len(t, payload.Contents, 1)
	assert.Contains(t, payload.Contents[0], "## Content from http://example.com/")
	assert.Contains(t, payload.Contents[0], "# Hello")
}

func TestHandleFetch_Errors(t *testing.T) {
	c, _ := newTestComponent(t, newPageServer(t))
	api := registerHandlers(t, c)

	t.Run("no urls", func(t *testing.T) {
		resp := postJSON(t, api.URL+"/api/fetch/fetch", FetchRequest{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var payload URLContentPayload
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, webfetch.CodeValidation, payload.ErrorCode)
	})

	t.Run("bad body", func(t *testing.T) {
		resp, err := http.Post(api.URL+"/api/fetch/fetch", "application/json", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(api.URL + "/api/fetch/fetch")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestHandleValidate(t *testing.T) {
	c, _ := newTestComponent(t, newPageServer(t))
	api := registerHandlers(t, c)

	tests := []struct {
		name       string
		req        ValidateRequest
		wantValid  bool
		wantReason weburl.Reason
	}{
		{"public url", ValidateRequest{URL: "https://example.com/docs"}, true, ""},
		{"localhost", ValidateRequest{URL: "http://localhost:8080/"}, false, weburl.ReasonBlockedDomain},
		{"not allowed", ValidateRequest{URL: "https://example.org/", AllowedDomains: []string{"example.com"}}, false, weburl.ReasonBlockedDomain},
		{"garbage", ValidateRequest{URL: "not a url"}, false, weburl.ReasonInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, api.URL+"/api/fetch/validate", tt.req)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var verdict weburl.Verdict
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&verdict))
			assert.Equal(t, tt.wantValid, verdict.Valid)
			assert.Equal(t, tt.wantReason, verdict.Reason)
		})
	}

	resp := postJSON(t, api.URL+"/api/fetch/validate", ValidateRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleStats(t *testing.T) {
	c, _ := newTestComponent(t, newPageServer(t))
	api := registerHandlers(t, c)

	postJSON(t, api.URL+"/api/fetch/fetch", FetchRequest{URLs: []string{"http://example.com/", "http://localhost/"}})

	resp, err := http.Get(api.URL + "/api/fetch/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.RequestsProcessed)
	assert.Equal(t, int64(1), stats.URLsFetched)
	assert.Equal(t, int64(1), stats.URLsFailed)
	assert.Equal(t, 1, stats.CacheEntries)
	assert.Equal(t, 2, stats.Validation.Attempts)
	assert.Equal(t, 1, stats.Validation.Failures)
	assert.Contains(t, stats.Validation.BlockedDomains, "localhost")
}
