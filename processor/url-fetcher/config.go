package urlfetcher

import (
	"fmt"
	"strings"

	"github.com/c360studio/semfetch/source/webfetch"
	"github.com/c360studio/semstreams/component"
)

// Config holds configuration for the url-fetcher processor component.
type Config struct {
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// StreamName is the JetStream stream carrying fetch requests.
	StreamName string `json:"stream_name" schema:"type:string,description:JetStream stream name,category:basic,default:URLFETCH"`

	// ConsumerName is the durable consumer name.
	ConsumerName string `json:"consumer_name" schema:"type:string,description:Durable consumer name,category:basic,default:url-fetcher"`

	// RequestSubject filters the consumer to fetch requests.
	RequestSubject string `json:"request_subject" schema:"type:string,description:Subject filter for fetch requests,category:basic,default:url.fetch.request.>"`

	// ResultSubject is where URLContentPayload messages are published.
	ResultSubject string `json:"result_subject" schema:"type:string,description:Subject for fetch results,category:basic,default:url.fetch.result"`

	// Fetch holds fetch limits and the domain policy.
	Fetch webfetch.Config `json:"fetch" schema:"type:object,description:Fetch limits and domain policy,category:advanced"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.RequestSubject == "" {
		return fmt.Errorf("request_subject is required")
	}
	if c.ResultSubject == "" {
		return fmt.Errorf("result_subject is required")
	}
	if strings.ContainsAny(c.ResultSubject, "*>") {
		return fmt.Errorf("result_subject must not contain wildcards")
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// DefaultConfig returns default configuration for the url-fetcher processor.
func DefaultConfig() Config {
	inputDefs := []component.PortDefinition{
		{
			Name:        "fetch.in",
			Type:        "jetstream",
			Subject:     "url.fetch.request.>",
			StreamName:  "URLFETCH",
			Required:    true,
			Description: "URL fetch requests",
		},
	}

	outputDefs := []component.PortDefinition{
		{
			Name:        "content.out",
			Type:        "jetstream",
			Subject:     "url.fetch.result",
			StreamName:  "URLFETCH",
			Required:    true,
			Description: "Fetched and normalized URL content",
		},
	}

	return Config{
		Ports: &component.PortConfig{
			Inputs:  inputDefs,
			Outputs: outputDefs,
		},
		StreamName:     "URLFETCH",
		ConsumerName:   "url-fetcher",
		RequestSubject: "url.fetch.request.>",
		ResultSubject:  "url.fetch.result",
		Fetch:          webfetch.DefaultConfig(),
	}
}
