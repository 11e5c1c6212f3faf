package urlfetcher

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semfetch/source/webfetch"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "url",
		Category:    "content",
		Version:     "v1",
		Description: "Fetched URL content blocks with batch outcome",
		Factory:     func() any { return &URLContentPayload{} },
	})
	if err != nil {
		panic("failed to register URLContentPayload: " + err.Error())
	}
}

// URLContentType is the message type for URL content payloads.
var URLContentType = message.Type{Domain: "url", Category: "content", Version: "v1"}

// FetchRequest asks the url-fetcher to retrieve a set of URLs.
type FetchRequest struct {
	// CorrelationID is echoed back on the result so callers can match it.
	CorrelationID string                `json:"correlation_id,omitempty"`
	URLs          []string              `json:"urls"`
	Options       webfetch.FetchOptions `json:"options"`
}

// DecodeFetchRequest accepts a bare FetchRequest or one wrapped in a
// semstreams BaseMessage envelope.
func DecodeFetchRequest(data []byte) (FetchRequest, error) {
	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return FetchRequest{}, err
	}
	if len(envelope.Payload) > 0 {
		data = envelope.Payload
	}

	var req FetchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return FetchRequest{}, err
	}
	return req, nil
}

// URLContentPayload implements message.Payload for fetch results.
// Error and ErrorCode are set when the request was rejected as a whole;
// per-URL failures are listed in Batch.Failed.
type URLContentPayload struct {
	CorrelationID string               `json:"correlation_id,omitempty"`
	Contents      []string             `json:"contents"`
	Batch         webfetch.BatchResult `json:"batch"`
	Error         string               `json:"error,omitempty"`
	ErrorCode     string               `json:"error_code,omitempty"`
	CompletedAt   time.Time            `json:"completed_at"`
}

// Schema returns the message type for Payload interface.
func (p *URLContentPayload) Schema() message.Type { return URLContentType }

// Validate validates the payload for Payload interface.
func (p *URLContentPayload) Validate() error {
	if p.Error == "" && p.Batch.RequestID == "" {
		return errors.New("request ID is required for a processed batch")
	}
	if p.Error != "" && p.ErrorCode == "" {
		return errors.New("error code is required when error is set")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *URLContentPayload) MarshalJSON() ([]byte, error) {
	type Alias URLContentPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *URLContentPayload) UnmarshalJSON(data []byte) error {
	type Alias URLContentPayload
	return json.Unmarshal(data, (*Alias)(p))
}
