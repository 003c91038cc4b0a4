package builtin

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/zero-day-ai/graphask/internal/guardrail"
)

// GuardrailConfig represents a guardrail configuration from YAML
type GuardrailConfig struct {
	Type   string         `mapstructure:"type" yaml:"type" json:"type"`
	Name   string         `mapstructure:"name" yaml:"name,omitempty" json:"name,omitempty"`
	Config map[string]any `mapstructure:"config" yaml:"config" json:"config"`
}

// ParseGuardrailConfigs creates Guardrail instances from configurations
func ParseGuardrailConfigs(configs []GuardrailConfig) ([]guardrail.Guardrail, error) {
	guardrails := make([]guardrail.Guardrail, 0, len(configs))

	for i, config := range configs {
		g, err := ParseGuardrailConfig(config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse guardrail config at index %d: %w", i, err)
		}
		guardrails = append(guardrails, g)
	}

	return guardrails, nil
}

// ParseGuardrailConfig creates a single Guardrail from configuration
func ParseGuardrailConfig(config GuardrailConfig) (guardrail.Guardrail, error) {
	switch config.Type {
	case "mutation":
		return NewMutationGuard(), nil
	case "content":
		return parseContentConfig(config)
	case "size":
		return parseSizeConfig(config)
	case "":
		return nil, fmt.Errorf("guardrail type is required")
	default:
		return nil, fmt.Errorf("unsupported guardrail type: %s (supported types: %v)", config.Type, SupportedGuardrailTypes())
	}
}

func decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}

// parseContentConfig parses a content filter configuration
func parseContentConfig(config GuardrailConfig) (guardrail.Guardrail, error) {
	type tempContentPattern struct {
		Pattern string `mapstructure:"pattern"`
		Action  string `mapstructure:"action"`
	}

	type tempContentConfig struct {
		Patterns      []tempContentPattern `mapstructure:"patterns"`
		DefaultAction string               `mapstructure:"default_action"`
	}

	var temp tempContentConfig
	if err := decode(config.Config, &temp); err != nil {
		return nil, fmt.Errorf("failed to decode content config: %w", err)
	}
	if len(temp.Patterns) == 0 {
		return nil, fmt.Errorf("content guardrail requires at least one pattern")
	}

	patterns := make([]ContentPattern, len(temp.Patterns))
	for i, p := range temp.Patterns {
		action := guardrail.GuardrailAction(p.Action)
		if action != "" && actionPriority(action) == 0 {
			return nil, fmt.Errorf("invalid action %q for pattern %d", p.Action, i)
		}
		patterns[i] = ContentPattern{Pattern: p.Pattern, Action: action}
	}

	return NewContentFilter(ContentFilterConfig{
		Name:          config.Name,
		Patterns:      patterns,
		DefaultAction: guardrail.GuardrailAction(temp.DefaultAction),
	})
}

// parseSizeConfig parses a size limit configuration
func parseSizeConfig(config GuardrailConfig) (guardrail.Guardrail, error) {
	var limit struct {
		MaxBytes int `mapstructure:"max_bytes"`
	}
	if err := decode(config.Config, &limit); err != nil {
		return nil, fmt.Errorf("failed to decode size config: %w", err)
	}
	if limit.MaxBytes <= 0 {
		return nil, fmt.Errorf("max_bytes must be positive")
	}
	return SizeLimit{MaxBytes: limit.MaxBytes}, nil
}

// SupportedGuardrailTypes returns the type names accepted by ParseGuardrailConfig.
func SupportedGuardrailTypes() []string {
	return []string{"mutation", "content", "size"}
}
