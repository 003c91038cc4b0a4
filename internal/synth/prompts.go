package synth

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/zero-day-ai/graphask/internal/types"
)

// PromptKind names one of the three prompts the engine sends.
type PromptKind string

const (
	PromptGenerate PromptKind = "generate"
	PromptFix      PromptKind = "fix"
	PromptExplain  PromptKind = "explain"
)

const ErrCodeInvalidPrompt types.ErrorCode = "SYNTH_INVALID_PROMPT"

// promptData is the template context for every prompt.
type promptData struct {
	Question string
	Schema   string
	Fence    string
	Examples []Example

	// PriorCandidate and PriorError are set for repair prompts.
	PriorCandidate string
	PriorError     string

	// Candidate, Rows and Truncated are set for the explanation prompt.
	Candidate string
	Rows      []map[string]any
	Truncated bool
}

const cypherRules = `Instructions:
- Use only the node labels, relationship types and properties listed in the schema.
- Only read from the graph. Never use CREATE, MERGE, SET, DELETE, REMOVE, DROP or any procedure that writes.
- Compare strings case-insensitively, for example WHERE toLower(p.name) = toLower("Alice").
- Reply with exactly one fenced code block tagged {{.Fence}} containing the statement. Do not add any other text.`

const cypherGenerateTemplate = `Task: write a Cypher statement that answers a question about a graph database.
` + cypherRules + `

Schema:
{{.Schema}}
{{- if .Examples}}

Examples:
{{- range .Examples}}

Question: {{.Question}}
` + "```{{$.Fence}}" + `
{{.Query}}
` + "```" + `
{{- end}}
{{- end}}

Question: {{.Question}}`

const cypherFixTemplate = `Task: the Cypher statement below failed. Write a corrected statement that answers the question.
` + cypherRules + `

Schema:
{{.Schema}}

Question: {{.Question}}

Failed statement:
` + "```{{.Fence}}" + `
{{.PriorCandidate}}
` + "```" + `

Error:
{{.PriorError}}`

const scriptAPI = `The graph is available as G:
- G.nodes(label=None) returns node values with .id, .labels and .properties
- G.node(id) returns a node value or None; G.has_node(id) returns a bool
- G.edges(type=None) returns edge values with .source, .target, .type and .properties
- G.neighbors(id, direction="both") and G.degree(id, direction="both"); direction is "both", "out" or "in"
- G.number_of_nodes() and G.number_of_edges()
Graph algorithms are in nx and take G first:
- nx.shortest_path(G, source, target, directed=True) returns a list of ids, empty when unreachable
- nx.shortest_path_length(G, source, target, directed=True) returns a number or None
- nx.bfs(G, source, depth=-1) returns reachable ids in visit order
- nx.pagerank(G, alpha=0.85), nx.betweenness_centrality(G) and nx.degree_centrality(G) return {id: score}
- nx.connected_components(G) returns lists of ids, largest first
- nx.top(scores, k=10) returns [{"node": id, "score": s}] sorted by score

Instructions:
- Write a Starlark script (a Python dialect without imports, classes or exceptions).
- Assign the answer to the global FINAL_RESULT, preferably a list of dicts.
- Compare strings case-insensitively with .lower().
- Reply with exactly one fenced code block tagged {{.Fence}} containing the script. Do not add any other text.`

const scriptGenerateTemplate = `Task: write a script that answers a question about a graph.
` + scriptAPI + `

Schema:
{{.Schema}}
{{- if .Examples}}

Examples:
{{- range .Examples}}

Question: {{.Question}}
` + "```{{$.Fence}}" + `
{{.Query}}
` + "```" + `
{{- end}}
{{- end}}

Question: {{.Question}}`

const scriptFixTemplate = `Task: the script below failed. Write a corrected script that answers the question.
` + scriptAPI + `

Schema:
{{.Schema}}

Question: {{.Question}}

Failed script:
` + "```{{.Fence}}" + `
{{.PriorCandidate}}
` + "```" + `

Error:
{{.PriorError}}`

const explainTemplate = `You turn graph query results into a short answer for a person.
Use only the results below. Do not mention the query or how the results were obtained.
If the results are empty, say that you do not know the answer.

Question: {{.Question}}

Query:
` + "```{{.Fence}}" + `
{{.Candidate}}
` + "```" + `

Results{{if .Truncated}} (truncated){{end}}:
{{toJSON .Rows}}

Answer:`

func promptFuncs() template.FuncMap {
	return template.FuncMap{
		"toJSON": func(v any) string {
			b, err := json.Marshal(v)
			if err != nil {
				return "null"
			}
			return string(b)
		},
		"trim": strings.TrimSpace,
	}
}

// PromptSet holds the compiled prompt templates for one dialect.
type PromptSet struct {
	fence     string
	templates map[PromptKind]*template.Template
}

// NewPromptSet compiles the dialect's default templates. overrides replaces
// individual templates and uses the same fields.
func NewPromptSet(dialect Dialect, overrides map[PromptKind]string) (*PromptSet, error) {
	sources := map[PromptKind]string{
		PromptGenerate: cypherGenerateTemplate,
		PromptFix:      cypherFixTemplate,
		PromptExplain:  explainTemplate,
	}
	fence := "cypher"
	if dialect == DialectScript {
		sources[PromptGenerate] = scriptGenerateTemplate
		sources[PromptFix] = scriptFixTemplate
		fence = "python"
	}
	for kind, src := range overrides {
		if _, ok := sources[kind]; !ok {
			return nil, types.NewError(ErrCodeInvalidPrompt, "unknown prompt kind "+string(kind))
		}
		if strings.TrimSpace(src) != "" {
			sources[kind] = src
		}
	}

	set := &PromptSet{fence: fence, templates: make(map[PromptKind]*template.Template, len(sources))}
	for kind, src := range sources {
		tmpl, err := template.New(string(kind)).Funcs(promptFuncs()).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, types.WrapError(ErrCodeInvalidPrompt, "failed to parse "+string(kind)+" prompt", err)
		}
		set.templates[kind] = tmpl
	}
	return set, nil
}

func (p *PromptSet) render(kind PromptKind, data promptData) (string, error) {
	tmpl, ok := p.templates[kind]
	if !ok {
		return "", types.NewError(ErrCodeInvalidPrompt, "no template for "+string(kind))
	}
	data.Fence = p.fence

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", types.WrapError(ErrCodeInvalidPrompt, "failed to render "+string(kind)+" prompt", err)
	}
	return buf.String(), nil
}
