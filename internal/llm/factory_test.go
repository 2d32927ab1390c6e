package llm

import (
	"strings"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{
			name:     "openai",
			config:   Config{Provider: "openai", APIKey: "sk-test"},
			wantName: "openai",
		},
		{
			name:     "anthropic",
			config:   Config{Provider: "anthropic", APIKey: "sk-ant-test"},
			wantName: "anthropic",
		},
		{
			name:     "claude alias",
			config:   Config{Provider: "claude", APIKey: "sk-ant-test"},
			wantName: "anthropic",
		},
		{
			name:     "ollama needs no key",
			config:   Config{Provider: "ollama"},
			wantName: "ollama",
		},
		{
			name:    "openai requires key",
			config:  Config{Provider: "openai"},
			wantErr: true,
		},
		{
			name:    "empty provider",
			config:  Config{},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "bard"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected provider %q, got %q", tt.wantName, p.Name())
			}
		})
	}
}

func TestNewProvider_UnknownErrorMessage(t *testing.T) {
	_, err := NewProvider(Config{Provider: "bard"})
	if err == nil || !strings.Contains(err.Error(), "supported") {
		t.Errorf("error should list supported providers, got %v", err)
	}
}
