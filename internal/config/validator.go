package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zero-day-ai/graphask/internal/guardrail/builtin"
	"github.com/zero-day-ai/graphask/internal/types"
)

// ConfigValidator validates configuration values.
type ConfigValidator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements ConfigValidator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a new ConfigValidator instance.
func NewValidator() ConfigValidator {
	return &validatorImpl{
		validate: validator.New(),
	}
}

// Validate checks struct tags first and then the rules that span fields.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	var messages []string
	if err := v.validate.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
		}
		for _, e := range validationErrs {
			messages = append(messages, formatValidationError(e))
		}
	}

	if !cfg.Engine.PerformExplanation && !cfg.Engine.ReturnRawResult {
		messages = append(messages, "engine: at least one of perform_explanation and return_raw_result must be true")
	}
	if _, err := builtin.ParseGuardrailConfigs(cfg.Engine.Guardrails); err != nil {
		messages = append(messages, "engine.guardrails: "+err.Error())
	}
	if err := cfg.LLM.Validate(); err != nil {
		messages = append(messages, "llm: "+errMessage(err))
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		messages = append(messages, "tracing.endpoint is required when tracing is enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Exporter == "prometheus" && cfg.Metrics.Address == "" {
		messages = append(messages, "metrics.address is required for the prometheus exporter")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Exporter == "otlp" && cfg.Metrics.Endpoint == "" {
		messages = append(messages, "metrics.endpoint is required for the otlp exporter")
	}

	if len(messages) > 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - ")))
	}
	return nil
}

func errMessage(err error) string {
	var e *types.Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + errMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// formatValidationError formats a single validation error with field path and details.
func formatValidationError(e validator.FieldError) string {
	fieldPath := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldPath)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", fieldPath, e.Param(), e.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s (got: %v)", fieldPath, e.Tag(), e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", fieldPath, e.Tag(), e.Value())
	}
}

// formatFieldPath converts validator namespace to a more readable field path.
// Example: "Config.Engine.MaxAttempts" -> "engine.max_attempts"
func formatFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) <= 1 {
		return namespace
	}

	result := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		result = append(result, camelToSnake(parts[i]))
	}

	return strings.Join(result, ".")
}

// camelToSnake converts CamelCase to snake_case, keeping acronyms together:
// "LLM" -> "llm", "TopK" -> "top_k", "MaxTransactionRetryTime" -> "max_transaction_retry_time".
func camelToSnake(s string) string {
	runes := []rune(s)
	var result strings.Builder
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if i > 0 && upper {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			prevUpper := runes[i-1] >= 'A' && runes[i-1] <= 'Z'
			if prevLower || (prevUpper && nextLower) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
