package builtin

import (
	"context"
	"fmt"
	"regexp"

	"github.com/zero-day-ai/graphask/internal/guardrail"
)

// ContentPattern defines a pattern to match and action to take
type ContentPattern struct {
	Pattern string                    // Regex pattern to match
	Action  guardrail.GuardrailAction // Action when matched (block, warn)
}

// ContentFilterConfig configures the content filter guardrail
type ContentFilterConfig struct {
	Name          string
	Patterns      []ContentPattern
	DefaultAction guardrail.GuardrailAction
}

// ContentFilter applies operator-supplied regex patterns to candidates, e.g.
// to forbid a label or an expensive procedure.
type ContentFilter struct {
	name     string
	patterns []compiledPattern
}

type compiledPattern struct {
	regex  *regexp.Regexp
	action guardrail.GuardrailAction
}

// NewContentFilter creates a new content filter guardrail
func NewContentFilter(config ContentFilterConfig) (*ContentFilter, error) {
	cf := &ContentFilter{
		name:     config.Name,
		patterns: make([]compiledPattern, 0, len(config.Patterns)),
	}
	if cf.name == "" {
		cf.name = "content-filter"
	}

	for i, pattern := range config.Patterns {
		regex, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern at index %d: %w", i, err)
		}

		action := pattern.Action
		if action == "" {
			action = config.DefaultAction
		}
		if action == "" {
			action = guardrail.GuardrailActionBlock
		}

		cf.patterns = append(cf.patterns, compiledPattern{regex: regex, action: action})
	}

	return cf, nil
}

func (c *ContentFilter) Name() string {
	return c.name
}

func (c *ContentFilter) Type() guardrail.GuardrailType {
	return guardrail.GuardrailTypeContent
}

// CheckInput returns the most restrictive action among matching patterns.
func (c *ContentFilter) CheckInput(ctx context.Context, input guardrail.GuardrailInput) (guardrail.GuardrailResult, error) {
	var matched []string
	mostRestrictive := guardrail.GuardrailActionAllow

	for _, cp := range c.patterns {
		if cp.regex.MatchString(input.Content) {
			matched = append(matched, cp.regex.String())
			if actionPriority(cp.action) > actionPriority(mostRestrictive) {
				mostRestrictive = cp.action
			}
		}
	}

	if len(matched) == 0 {
		return guardrail.NewAllowResult(), nil
	}

	reason := fmt.Sprintf("matched pattern(s): %v", matched)
	var result guardrail.GuardrailResult
	switch mostRestrictive {
	case guardrail.GuardrailActionBlock:
		result = guardrail.NewBlockResult(reason)
	case guardrail.GuardrailActionWarn:
		result = guardrail.NewWarnResult(reason)
	default:
		result = guardrail.NewAllowResult()
	}
	result.Metadata["matched_patterns"] = matched
	return result, nil
}

// actionPriority orders actions by restrictiveness.
func actionPriority(action guardrail.GuardrailAction) int {
	switch action {
	case guardrail.GuardrailActionBlock:
		return 3
	case guardrail.GuardrailActionWarn:
		return 2
	case guardrail.GuardrailActionAllow:
		return 1
	default:
		return 0
	}
}
