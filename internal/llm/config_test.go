package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLLMConfig() LLMConfig {
	return LLMConfig{
		DefaultProvider: "primary",
		Providers: map[string]ProviderConfig{
			"primary": {Type: ProviderOpenAI, APIKey: "sk-test", DefaultModel: "gpt-4o"},
			"local":   {Type: ProviderOllama, DefaultModel: "llama3"},
		},
	}
}

func TestLLMConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *LLMConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *LLMConfig) {}},
		{name: "no default", mutate: func(c *LLMConfig) { c.DefaultProvider = "" }, wantErr: "default_provider cannot be empty"},
		{name: "no providers", mutate: func(c *LLMConfig) { c.Providers = nil }, wantErr: "providers map cannot be empty"},
		{name: "missing default", mutate: func(c *LLMConfig) { c.DefaultProvider = "nope" }, wantErr: "not found in providers map"},
		{
			name: "bad type",
			mutate: func(c *LLMConfig) {
				c.Providers["primary"] = ProviderConfig{Type: "bogus", DefaultModel: "m"}
			},
			wantErr: "provider 'primary' validation failed",
		},
		{
			name: "missing model",
			mutate: func(c *LLMConfig) {
				c.Providers["local"] = ProviderConfig{Type: ProviderOllama}
			},
			wantErr: "provider 'local' validation failed",
		},
		{name: "negative rate", mutate: func(c *LLMConfig) { c.RateLimit.RequestsPerSecond = -1 }, wantErr: "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validLLMConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProviderConfig_MockNeedsNoModel(t *testing.T) {
	cfg := ProviderConfig{Type: ProviderMock}
	assert.NoError(t, cfg.Validate())
	assert.False(t, ProviderMock.requiresAPIKey())
	assert.True(t, ProviderAnthropic.requiresAPIKey())
}

func TestLLMConfig_Default(t *testing.T) {
	cfg := validLLMConfig()
	p, err := cfg.Default()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.DefaultModel)

	cfg.DefaultProvider = "missing"
	_, err = cfg.Default()
	assert.Error(t, err)
}
