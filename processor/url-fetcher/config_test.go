package urlfetcher

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.StreamName != "URLFETCH" {
		t.Errorf("StreamName = %q, want URLFETCH", cfg.StreamName)
	}
	if cfg.RequestSubject != "url.fetch.request.>" {
		t.Errorf("RequestSubject = %q", cfg.RequestSubject)
	}
	if len(cfg.Ports.Inputs) != 1 || len(cfg.Ports.Outputs) != 1 {
		t.Errorf("expected one input and one output port, got %+v", cfg.Ports)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing stream", func(c *Config) { c.StreamName = "" }, true},
		{"missing consumer", func(c *Config) { c.ConsumerName = "" }, true},
		{"missing request subject", func(c *Config) { c.RequestSubject = "" }, true},
		{"missing result subject", func(c *Config) { c.ResultSubject = "" }, true},
		{"wildcard result subject", func(c *Config) { c.ResultSubject = "url.fetch.>" }, true},
		{"negative batch size", func(c *Config) { c.Fetch.BatchSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
