package synth

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/zero-day-ai/graphask/internal/types"
	"gopkg.in/yaml.v3"
)

// Example is one worked question and the query that answers it.
type Example struct {
	Question string `yaml:"question" json:"question"`
	Query    string `yaml:"query" json:"query"`
}

func (e Example) Validate() error {
	if strings.TrimSpace(e.Question) == "" {
		return types.NewError(ErrCodeInvalidExamples, "example question is empty")
	}
	if strings.TrimSpace(e.Query) == "" {
		return types.NewError(ErrCodeInvalidExamples, "example query is empty")
	}
	return nil
}

// LoadExamples reads a YAML list of {question, query} pairs. The file may
// also be a mapping with an "examples" key.
func LoadExamples(fs afero.Fs, path string) ([]Example, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, types.WrapError(ErrCodeInvalidExamples, "failed to read examples file "+path, err)
	}
	return ParseExamples(data)
}

// ParseExamples decodes worked examples from YAML.
func ParseExamples(data []byte) ([]Example, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, types.WrapError(ErrCodeInvalidExamples, "failed to parse examples", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var examples []Example
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&examples); err != nil {
			return nil, types.WrapError(ErrCodeInvalidExamples, "failed to decode examples", err)
		}
	case yaml.MappingNode:
		var wrapped struct {
			Examples []Example `yaml:"examples"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, types.WrapError(ErrCodeInvalidExamples, "failed to decode examples", err)
		}
		examples = wrapped.Examples
	default:
		return nil, types.NewError(ErrCodeInvalidExamples, "examples must be a list or a mapping with an examples key")
	}

	for i, ex := range examples {
		if err := ex.Validate(); err != nil {
			return nil, types.WrapError(ErrCodeInvalidExamples, fmt.Sprintf("example %d", i), err)
		}
		examples[i].Query = strings.TrimSpace(ex.Query)
		examples[i].Question = strings.TrimSpace(ex.Question)
	}
	return examples, nil
}
