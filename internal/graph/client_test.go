package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/types"
)

func TestGraphClientConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(c *GraphClientConfig)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *GraphClientConfig) {}},
		{name: "empty uri", mutate: func(c *GraphClientConfig) { c.URI = "" }, wantErr: true},
		{name: "empty username", mutate: func(c *GraphClientConfig) { c.Username = "" }, wantErr: true},
		{name: "empty password", mutate: func(c *GraphClientConfig) { c.Password = "" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *GraphClientConfig) { c.ConnectionTimeout = 0 }, wantErr: true},
		{name: "negative retry time", mutate: func(c *GraphClientConfig) { c.MaxTransactionRetryTime = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrCodeGraphInvalidConfig, types.CodeOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewNeo4jClient_RejectsInvalidConfig(t *testing.T) {
	_, err := NewNeo4jClient(GraphClientConfig{})
	require.Error(t, err)

	client, err := NewNeo4jClient(DefaultConfig())
	require.NoError(t, err)
	assert.True(t, client.Health(context.Background()).IsUnhealthy())
}
