package webfetch

import (
	"testing"
	"time"
)

func TestConfig_Getters(t *testing.T) {
	var empty Config

	if got := empty.GetMaxURLsPerRequest(); got != DefaultMaxURLsPerRequest {
		t.Errorf("GetMaxURLsPerRequest() = %d, want %d", got, DefaultMaxURLsPerRequest)
	}
	if got := empty.GetDefaultTimeout(); got != 30*time.Second {
		t.Errorf("GetDefaultTimeout() = %v, want 30s", got)
	}
	if got := empty.GetMaxContentBytes(); got != DefaultMaxContentKB*1024 {
		t.Errorf("GetMaxContentBytes() = %d, want %d", got, DefaultMaxContentKB*1024)
	}
	if !empty.GetConvertToMarkdown() {
		t.Error("GetConvertToMarkdown() should default to true")
	}
	if got := empty.GetMaxRedirects(); got != 3 {
		t.Errorf("GetMaxRedirects() = %d, want 3", got)
	}
	if got := empty.GetBatchSize(); got != 5 {
		t.Errorf("GetBatchSize() = %d, want 5", got)
	}
	if got := empty.GetBatchDelay(); got != 200*time.Millisecond {
		t.Errorf("GetBatchDelay() = %v, want 200ms", got)
	}

	zero := 0
	off := false
	explicit := Config{MaxRedirects: &zero, BatchDelayMs: &zero, ConvertToMarkdown: &off, DefaultMaxContentKB: 2}
	if got := explicit.GetMaxRedirects(); got != 0 {
		t.Errorf("explicit GetMaxRedirects() = %d, want 0", got)
	}
	if got := explicit.GetBatchDelay(); got != 0 {
		t.Errorf("explicit GetBatchDelay() = %v, want 0", got)
	}
	if explicit.GetConvertToMarkdown() {
		t.Error("explicit GetConvertToMarkdown() should be false")
	}
	if got := explicit.GetMaxContentBytes(); got != 2048 {
		t.Errorf("explicit GetMaxContentBytes() = %d, want 2048", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	negative := -1
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultConfig()},
		{name: "zero value", cfg: Config{}},
		{name: "negative max urls", cfg: Config{MaxURLsPerRequest: -1}, wantErr: true},
		{name: "negative timeout", cfg: Config{DefaultTimeoutMs: -1}, wantErr: true},
		{name: "negative content size", cfg: Config{DefaultMaxContentKB: -5}, wantErr: true},
		{name: "negative redirects", cfg: Config{MaxRedirects: &negative}, wantErr: true},
		{name: "negative batch delay", cfg: Config{BatchDelayMs: &negative}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
