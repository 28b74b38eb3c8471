package provider

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "groq/valid",
			cfg:  Config{Backend: BackendGroq, APIKey: "gsk-test", Model: "llama-3.1-8b-instant"},
		},
		{
			name:    "groq/missing api key",
			cfg:     Config{Backend: BackendGroq, Model: "llama-3.1-8b-instant"},
			wantErr: "GROQ_API_KEY",
		},
		{
			name: "openai/valid",
			cfg:  Config{Backend: BackendOpenAI, APIKey: "sk-test", Model: "gpt-4o-mini"},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, Model: "gpt-4o-mini"},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name: "azure/valid",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "key",
				BaseURL:         "https://my.openai.azure.com",
				AzureDeployment: "gpt-4o",
				Model:           "gpt-4o",
			},
		},
		{
			name: "azure/missing endpoint",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "key",
				AzureDeployment: "gpt-4o",
				Model:           "gpt-4o",
			},
			wantErr: "AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{
				Backend: BackendAzure,
				APIKey:  "key",
				BaseURL: "https://my.openai.azure.com",
				Model:   "gpt-4o",
			},
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},
		{
			name: "ollama/valid without key",
			cfg:  Config{Backend: BackendOllama, Model: "llama3"},
		},
		{
			name:    "missing model",
			cfg:     Config{Backend: BackendOllama},
			wantErr: "model name is required",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: Backend("replicate"), Model: "x"},
			wantErr: "unknown backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
