package config

import (
	"time"

	"github.com/zero-day-ai/graphask/internal/graph"
	"github.com/zero-day-ai/graphask/internal/guardrail/builtin"
	"github.com/zero-day-ai/graphask/internal/llm"
)

// Config is the root configuration for graphask.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Graph   GraphConfig   `mapstructure:"graph" yaml:"graph"`
	LLM     llm.LLMConfig `mapstructure:"llm" yaml:"llm"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Bus     BusConfig     `mapstructure:"bus" yaml:"bus"`
}

// EngineConfig contains repair loop and output settings.
type EngineConfig struct {
	MaxAttempts        int    `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=1,max=20"`
	TopK               int    `mapstructure:"top_k" yaml:"top_k" validate:"min=1,max=10000"`
	PerformExplanation bool   `mapstructure:"perform_explanation" yaml:"perform_explanation"`
	ReturnRawResult    bool   `mapstructure:"return_raw_result" yaml:"return_raw_result"`
	ReturnCandidate    bool   `mapstructure:"return_candidate" yaml:"return_candidate"`
	ExamplesFile       string `mapstructure:"examples_file" yaml:"examples_file,omitempty"`
	SafetyMode         string `mapstructure:"safety_mode" yaml:"safety_mode" validate:"oneof=read_only unrestricted"`

	// ScriptMaxSteps bounds Starlark execution; zero uses the engine default.
	ScriptMaxSteps uint64 `mapstructure:"script_max_steps" yaml:"script_max_steps"`

	// Timeout caps one whole question. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`

	Schema     SchemaConfig              `mapstructure:"schema" yaml:"schema"`
	Snapshot   SnapshotConfig            `mapstructure:"snapshot" yaml:"snapshot"`
	Guardrails []builtin.GuardrailConfig `mapstructure:"guardrails" yaml:"guardrails,omitempty"`

	// PromptFiles replaces built-in prompt templates, keyed by generate, fix
	// or explain.
	PromptFiles map[string]string `mapstructure:"prompt_files" yaml:"prompt_files,omitempty" validate:"dive,keys,oneof=generate fix explain,endkeys,required"`
}

// SchemaConfig bounds schema introspection.
type SchemaConfig struct {
	MaxPatterns int `mapstructure:"max_patterns" yaml:"max_patterns" validate:"min=1"`
}

// SnapshotConfig bounds the in-memory graph used by scripts.
type SnapshotConfig struct {
	MaxNodes int `mapstructure:"max_nodes" yaml:"max_nodes" validate:"min=1"`
	MaxEdges int `mapstructure:"max_edges" yaml:"max_edges" validate:"min=1"`
}

// GraphConfig contains graph database settings.
type GraphConfig struct {
	Neo4j Neo4jConfig `mapstructure:"neo4j" yaml:"neo4j"`
}

// Neo4jConfig contains Neo4j connection settings.
type Neo4jConfig struct {
	URI                     string        `mapstructure:"uri" yaml:"uri" validate:"required"`
	Username                string        `mapstructure:"username" yaml:"username" validate:"required"`
	Password                string        `mapstructure:"password" yaml:"password" validate:"required"`
	Database                string        `mapstructure:"database" yaml:"database,omitempty"`
	MaxConnections          int           `mapstructure:"max_connections" yaml:"max_connections" validate:"min=1,max=1000"`
	ConnectionTimeout       time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout" validate:"min=1s"`
	MaxTransactionRetryTime time.Duration `mapstructure:"max_transaction_retry_time" yaml:"max_transaction_retry_time" validate:"min=1s"`
}

// ClientConfig converts the settings for graph.NewNeo4jClient.
func (c Neo4jConfig) ClientConfig() graph.GraphClientConfig {
	return graph.GraphClientConfig{
		URI:                     c.URI,
		Username:                c.Username,
		Password:                c.Password,
		Database:                c.Database,
		MaxConnectionPoolSize:   c.MaxConnections,
		ConnectionTimeout:       c.ConnectionTimeout,
		MaxTransactionRetryTime: c.MaxTransactionRetryTime,
	}
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio" validate:"min=0,max=1"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
}

// MetricsConfig contains metrics export configuration.
// Exporter "prometheus" serves a scrape endpoint on Address; "otlp" pushes
// to Endpoint over gRPC.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Exporter string `mapstructure:"exporter" yaml:"exporter" validate:"oneof=prometheus otlp"`
	Address  string `mapstructure:"address" yaml:"address"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
}

// BusConfig configures the NATS question worker used by `graphask serve`.
type BusConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	Subject        string        `mapstructure:"subject" yaml:"subject" validate:"required"`
	QueueGroup     string        `mapstructure:"queue_group" yaml:"queue_group"`
	Workers        int           `mapstructure:"workers" yaml:"workers" validate:"min=1,max=256"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"min=1s"`
}
