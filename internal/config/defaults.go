package config

import (
	"time"

	"github.com/zero-day-ai/graphask/internal/llm"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxAttempts:     3,
			TopK:            10,
			ReturnRawResult: true,
			SafetyMode:      "read_only",
			ScriptMaxSteps:  10_000_000,
			Timeout:         2 * time.Minute,
			Schema: SchemaConfig{
				MaxPatterns: 200,
			},
			Snapshot: SnapshotConfig{
				MaxNodes: 50_000,
				MaxEdges: 200_000,
			},
		},
		Graph: GraphConfig{
			Neo4j: Neo4jConfig{
				URI:                     "bolt://localhost:7687",
				Username:                "neo4j",
				Password:                "${NEO4J_PASSWORD:-neo4j}",
				MaxConnections:          50,
				ConnectionTimeout:       30 * time.Second,
				MaxTransactionRetryTime: 15 * time.Second,
			},
		},
		LLM: llm.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]llm.ProviderConfig{
				"openai": {
					Type:         llm.ProviderOpenAI,
					APIKey:       "${OPENAI_API_KEY}",
					DefaultModel: "gpt-4o-mini",
				},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Insecure:    true,
			SampleRatio: 1,
			ServiceName: "graphask",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Exporter: "prometheus",
			Address:  ":9464",
			Endpoint: "localhost:4317",
			Insecure: true,
		},
		Bus: BusConfig{
			URL:            "nats://127.0.0.1:4222",
			Subject:        "graphask.ask",
			QueueGroup:     "graphask",
			Workers:        4,
			RequestTimeout: 2 * time.Minute,
		},
	}
}
