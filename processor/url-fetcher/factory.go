package urlfetcher

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the url-fetcher processor component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "url-fetcher",
		Factory:     NewComponent,
		Schema:      urlFetcherSchema,
		Type:        "processor",
		Protocol:    "nats",
		Domain:      "network",
		Description: "Secure URL content retrieval for LLM context assembly",
		Version:     "0.1.0",
	})
}
